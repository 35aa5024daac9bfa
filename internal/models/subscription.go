package models

import "time"

// Subscription is the per-account plan row holding quota limits and the
// running usage counters. Counters only ever move forward within a billing
// period; plan changes rewrite limits but never touch counters.
type Subscription struct {
	ID             int       `json:"id"`
	OwnerID        int       `json:"owner_id"`
	Plan           string    `json:"plan"`
	Status         string    `json:"status"`
	InvoiceLimit   int       `json:"invoice_limit"`
	ClientLimit    int       `json:"client_limit"`
	InvoicesSent   int       `json:"invoices_sent"`
	ClientsCreated int       `json:"clients_created"`
	MonthlyPrice   float64   `json:"monthly_price"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"

	SubscriptionStatusActive = "active"
)

// PlanSpec holds the quota limits and price for one plan tier.
type PlanSpec struct {
	InvoiceLimit int     `json:"invoice_limit"`
	ClientLimit  int     `json:"client_limit"`
	MonthlyPrice float64 `json:"monthly_price"`
}

// PlanCatalog maps plan names to their limits. New accounts start on free.
var PlanCatalog = map[string]PlanSpec{
	PlanFree:     {InvoiceLimit: 5, ClientLimit: 3, MonthlyPrice: 0},
	PlanPro:      {InvoiceLimit: 100, ClientLimit: 50, MonthlyPrice: 12},
	PlanBusiness: {InvoiceLimit: 1000, ClientLimit: 500, MonthlyPrice: 39},
}

// UpdatePlanRequest represents the request to change the subscription plan
type UpdatePlanRequest struct {
	Plan string `json:"plan"`
}

// Reservation is a consumed quota slot returned by reserveQuota.
type Reservation struct {
	Resource  string `json:"resource"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}
