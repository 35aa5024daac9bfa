package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lancebill-backend/internal/cache"
	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/metrics"
	"lancebill-backend/internal/models"
)

// ErrValidation marks request-shape problems (missing fields, bad ranges)
// that are the caller's fault. Wrap with fmt.Errorf("%w: ...").
var ErrValidation = errors.New("validation failed")

// InvoiceStore is the persistence surface the ledger service drives. The
// pgx repository implements it; tests substitute an in-memory version.
type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id, ownerID int) (*models.Invoice, error)
	ListByOwner(ctx context.Context, ownerID int) ([]*models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, id, ownerID int) error
	TransitionStatus(ctx context.Context, id, ownerID int, target models.InvoiceStatus, now time.Time) (*models.Invoice, error)
	MarkViewed(ctx context.Context, id int, now time.Time) (*models.Invoice, error)
	ApplyPayment(ctx context.Context, invoiceID, ownerID int, amount float64, method string, paymentDate time.Time, notes string) (*models.Payment, error)
	SummaryByOwner(ctx context.Context, ownerID int) (*models.DashboardSummary, error)
}

type PaymentStore interface {
	CreatePending(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id, ownerID int) (*models.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID, ownerID int) ([]*models.Payment, error)
	UpdatePending(ctx context.Context, p *models.Payment, ownerID int) error
	Delete(ctx context.Context, id, ownerID int) error
	Complete(ctx context.Context, id, ownerID int, now time.Time) (*models.Payment, error)
	MarkFailed(ctx context.Context, id, ownerID int) (*models.Payment, error)
}

type ClientChecker interface {
	BelongsTo(ctx context.Context, clientID, ownerID int) (bool, error)
}

// LedgerService orchestrates invoice and payment operations: it validates
// input, computes totals with the pure core, and hands the result to the
// stores, which run the same core rules again under row locks.
type LedgerService struct {
	invoices InvoiceStore
	payments PaymentStore
	clients  ClientChecker
}

func NewLedgerService(invoices InvoiceStore, payments PaymentStore, clients ClientChecker) *LedgerService {
	return &LedgerService{invoices: invoices, payments: payments, clients: clients}
}

// PreviewTotals computes subtotal/tax/total without persisting anything.
func (s *LedgerService) PreviewTotals(req *models.PreviewRequest) (*models.PreviewResponse, error) {
	totals, err := ledger.ComputeTotals(req.Items, req.DiscountAmount, req.TaxRatePercent)
	if err != nil {
		return nil, err
	}
	return &models.PreviewResponse{
		Subtotal:  totals.Subtotal,
		TaxAmount: totals.TaxAmount,
		Total:     totals.Total,
	}, nil
}

func buildLineItems(inputs []models.LineItemInput) []models.InvoiceLineItem {
	items := make([]models.InvoiceLineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.InvoiceLineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			Rate:        in.Rate,
			Amount:      ledger.ItemAmount(in),
		})
	}
	return items
}

func (s *LedgerService) CreateInvoice(ctx context.Context, ownerID int, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if req.ClientID <= 0 {
		return nil, fmt.Errorf("%w: client_id is required", ErrValidation)
	}
	if req.IssueDate.IsZero() || req.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: issue_date and due_date are required", ErrValidation)
	}
	if req.DueDate.Before(req.IssueDate) {
		return nil, fmt.Errorf("%w: due_date before issue_date", ErrValidation)
	}

	totals, err := ledger.ComputeTotals(req.Items, req.DiscountAmount, req.TaxRatePercent)
	if err != nil {
		return nil, err
	}

	// Foreign client reads as absent, same as any other cross-tenant row.
	owns, err := s.clients.BelongsTo(ctx, req.ClientID, ownerID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ledger.ErrNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	inv := &models.Invoice{
		OwnerID:        ownerID,
		ClientID:       req.ClientID,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		Currency:       currency,
		TaxRatePercent: req.TaxRatePercent,
		DiscountAmount: req.DiscountAmount,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.Total,
		AmountPaid:     0,
		AmountDue:      totals.Total,
		Status:         models.InvoiceStatusDraft,
		Notes:          req.Notes,
		Items:          buildLineItems(req.Items),
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			metrics.QuotaDenialsTotal.WithLabelValues(string(ledger.ResourceInvoice)).Inc()
		}
		return nil, err
	}

	log.Printf("[Ledger] Created invoice %s for owner %d (total %.2f %s)",
		inv.InvoiceNumber, ownerID, inv.Total, inv.Currency)

	cache.InvalidateDashboard(ctx, ownerID)
	inv.EffectiveStatus = inv.EffectiveStatusAt(time.Now())
	return inv, nil
}

func (s *LedgerService) GetInvoice(ctx context.Context, id, ownerID int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	inv.EffectiveStatus = inv.EffectiveStatusAt(time.Now())
	return inv, nil
}

func (s *LedgerService) ListInvoices(ctx context.Context, ownerID int) ([]*models.Invoice, error) {
	invoices, err := s.invoices.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, inv := range invoices {
		inv.EffectiveStatus = inv.EffectiveStatusAt(now)
	}
	return invoices, nil
}

// UpdateInvoice patches a non-paid invoice and recomputes its totals. The
// store re-derives the balance under the row lock, so the read here can be
// stale without corrupting amount_due.
func (s *LedgerService) UpdateInvoice(ctx context.Context, id, ownerID int, req *models.UpdateInvoiceRequest) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return nil, ledger.ErrInvoiceImmutable
	}

	if req.ClientID != nil {
		owns, err := s.clients.BelongsTo(ctx, *req.ClientID, ownerID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, ledger.ErrNotFound
		}
		inv.ClientID = *req.ClientID
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if inv.DueDate.Before(inv.IssueDate) {
		return nil, fmt.Errorf("%w: due_date before issue_date", ErrValidation)
	}
	if req.Currency != nil {
		inv.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.TaxRatePercent != nil {
		inv.TaxRatePercent = *req.TaxRatePercent
	}
	if req.DiscountAmount != nil {
		inv.DiscountAmount = *req.DiscountAmount
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}

	inputs := req.Items
	if inputs == nil {
		inputs = make([]models.LineItemInput, 0, len(inv.Items))
		for _, item := range inv.Items {
			inputs = append(inputs, models.LineItemInput{
				Description: item.Description,
				Quantity:    item.Quantity,
				Rate:        item.Rate,
			})
		}
	}

	totals, err := ledger.ComputeTotals(inputs, inv.DiscountAmount, inv.TaxRatePercent)
	if err != nil {
		return nil, err
	}
	if err := ledger.Retotal(inv, totals, inv.DiscountAmount, inv.TaxRatePercent); err != nil {
		return nil, err
	}
	inv.Items = buildLineItems(inputs)

	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	cache.InvalidateDashboard(ctx, ownerID)
	return s.GetInvoice(ctx, id, ownerID)
}

func (s *LedgerService) DeleteInvoice(ctx context.Context, id, ownerID int) error {
	if err := s.invoices.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	cache.InvalidateDashboard(ctx, ownerID)
	return nil
}

func (s *LedgerService) TransitionInvoice(ctx context.Context, id, ownerID int, target models.InvoiceStatus) (*models.Invoice, error) {
	switch target {
	case models.InvoiceStatusSent, models.InvoiceStatusViewed, models.InvoiceStatusPaid:
	default:
		return nil, fmt.Errorf("%w: unknown target status %q", ErrValidation, target)
	}

	inv, err := s.invoices.TransitionStatus(ctx, id, ownerID, target, time.Now())
	if err != nil {
		return nil, err
	}

	log.Printf("[Ledger] Invoice %d -> %s (owner %d)", id, target, ownerID)
	cache.InvalidateDashboard(ctx, ownerID)
	inv.EffectiveStatus = inv.EffectiveStatusAt(time.Now())
	return inv, nil
}

// MarkInvoiceViewed handles the public view-tracking entry point. No owner
// scoping and no owner-only fields in the result.
func (s *LedgerService) MarkInvoiceViewed(ctx context.Context, id int) (*models.Invoice, error) {
	return s.invoices.MarkViewed(ctx, id, time.Now())
}

// ApplyPayment records a completed payment against an invoice.
func (s *LedgerService) ApplyPayment(ctx context.Context, invoiceID, ownerID int, req *models.ApplyPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidPaymentAmount
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = "other"
	}
	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment, err := s.invoices.ApplyPayment(ctx, invoiceID, ownerID, req.Amount, method, paymentDate, req.Notes)
	if err != nil {
		return nil, err
	}

	metrics.PaymentsAppliedTotal.Inc()
	log.Printf("[Ledger] Payment of %.2f applied to invoice %d (owner %d)", req.Amount, invoiceID, ownerID)
	cache.InvalidateDashboard(ctx, ownerID)
	return payment, nil
}

func (s *LedgerService) ListPayments(ctx context.Context, invoiceID, ownerID int) ([]*models.Payment, error) {
	// Surface absence of the invoice itself, not an empty list.
	if _, err := s.invoices.Get(ctx, invoiceID, ownerID); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, invoiceID, ownerID)
}

func (s *LedgerService) GetPayment(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	return s.payments.Get(ctx, id, ownerID)
}

// CreatePendingPayment records an expected payment. The invoice balance is
// untouched until the payment completes.
func (s *LedgerService) CreatePendingPayment(ctx context.Context, invoiceID, ownerID int, req *models.ApplyPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidPaymentAmount
	}
	inv, err := s.invoices.Get(ctx, invoiceID, ownerID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return nil, ledger.ErrInvoiceAlreadyPaid
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = "other"
	}
	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	p := &models.Payment{
		InvoiceID:   invoiceID,
		Amount:      req.Amount,
		Method:      method,
		PaymentDate: paymentDate,
		Notes:       req.Notes,
	}
	if err := s.payments.CreatePending(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *LedgerService) UpdatePendingPayment(ctx context.Context, id, ownerID int, req *models.UpdatePaymentRequest) (*models.Payment, error) {
	p, err := s.payments.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return nil, ledger.ErrPaymentImmutable
	}

	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, ledger.ErrInvalidPaymentAmount
		}
		p.Amount = *req.Amount
	}
	if req.Method != nil {
		p.Method = *req.Method
	}
	if req.PaymentDate != nil {
		p.PaymentDate = *req.PaymentDate
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	if err := s.payments.UpdatePending(ctx, p, ownerID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id, ownerID int) error {
	return s.payments.Delete(ctx, id, ownerID)
}

// CompletePayment flips a pending payment to completed; its amount goes
// through the same application rules as a direct payment.
func (s *LedgerService) CompletePayment(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	p, err := s.payments.Complete(ctx, id, ownerID, time.Now())
	if err != nil {
		return nil, err
	}

	metrics.PaymentsAppliedTotal.Inc()
	log.Printf("[Ledger] Pending payment %d completed (owner %d)", id, ownerID)
	cache.InvalidateDashboard(ctx, ownerID)
	return p, nil
}

func (s *LedgerService) FailPayment(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	return s.payments.MarkFailed(ctx, id, ownerID)
}
