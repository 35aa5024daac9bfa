package ledger

import "lancebill-backend/internal/models"

// Resource names a quota-gated resource on a subscription.
type Resource string

const (
	ResourceInvoice Resource = "invoice"
	ResourceClient  Resource = "client"
)

// Valid reports whether the resource name is one the quota gate knows.
func (r Resource) Valid() bool {
	return r == ResourceInvoice || r == ResourceClient
}

// ReserveQuota performs the check-and-increment against the subscription's
// counters. The caller must hold the subscription row lock for the whole
// check-increment-persist sequence: a granted reservation is never allowed
// to be contradicted by a concurrent one.
func ReserveQuota(sub *models.Subscription, resource Resource) (*models.Reservation, error) {
	if sub == nil {
		return nil, ErrNoSubscription
	}

	switch resource {
	case ResourceInvoice:
		if sub.InvoicesSent >= sub.InvoiceLimit {
			return nil, ErrQuotaExceeded
		}
		sub.InvoicesSent++
		return &models.Reservation{
			Resource:  string(resource),
			Used:      sub.InvoicesSent,
			Limit:     sub.InvoiceLimit,
			Remaining: sub.InvoiceLimit - sub.InvoicesSent,
		}, nil

	case ResourceClient:
		if sub.ClientsCreated >= sub.ClientLimit {
			return nil, ErrQuotaExceeded
		}
		sub.ClientsCreated++
		return &models.Reservation{
			Resource:  string(resource),
			Used:      sub.ClientsCreated,
			Limit:     sub.ClientLimit,
			Remaining: sub.ClientLimit - sub.ClientsCreated,
		}, nil

	default:
		return nil, ErrInvalidResource
	}
}

// ChangePlan rewrites the subscription's limits and price from the plan
// catalog. Running counters are deliberately left alone; they reset only at
// billing-period rollover, which is handled outside the ledger.
func ChangePlan(sub *models.Subscription, plan string) error {
	if sub == nil {
		return ErrNoSubscription
	}
	spec, ok := models.PlanCatalog[plan]
	if !ok {
		return ErrUnknownPlan
	}
	sub.Plan = plan
	sub.InvoiceLimit = spec.InvoiceLimit
	sub.ClientLimit = spec.ClientLimit
	sub.MonthlyPrice = spec.MonthlyPrice
	return nil
}
