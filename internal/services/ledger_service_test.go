package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
)

// fakeStore is an in-memory InvoiceStore, PaymentStore, and ClientChecker.
// Its mutex stands in for the database row locks: every mutation runs the
// same read-validate-write sequence the pgx repositories run.
type fakeStore struct {
	mu          sync.Mutex
	sub         *models.Subscription
	invoices    map[int]*models.Invoice
	payments    map[int]*models.Payment
	clients     map[int]int // client ID -> owner ID
	nextInvoice int
	nextPayment int
}

func newFakeStore(plan string) *fakeStore {
	spec := models.PlanCatalog[plan]
	return &fakeStore{
		sub: &models.Subscription{
			OwnerID:      1,
			Plan:         plan,
			InvoiceLimit: spec.InvoiceLimit,
			ClientLimit:  spec.ClientLimit,
		},
		invoices: make(map[int]*models.Invoice),
		payments: make(map[int]*models.Payment),
		clients:  map[int]int{10: 1},
	}
}

func cloneInvoice(inv *models.Invoice) *models.Invoice {
	c := *inv
	c.Items = append([]models.InvoiceLineItem(nil), inv.Items...)
	return &c
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	return &c
}

func (f *fakeStore) Create(ctx context.Context, inv *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := ledger.ReserveQuota(f.sub, ledger.ResourceInvoice); err != nil {
		return err
	}

	f.nextInvoice++
	inv.ID = f.nextInvoice
	inv.InvoiceNumber = fmt.Sprintf("INV-%06d", f.nextInvoice)
	f.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id, ownerID int) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, ledger.ErrNotFound
	}
	return cloneInvoice(inv), nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, ownerID int) ([]*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range f.invoices {
		if inv.OwnerID == ownerID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, inv *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.invoices[inv.ID]
	if !ok || current.OwnerID != inv.OwnerID {
		return ledger.ErrNotFound
	}
	if current.Status == models.InvoiceStatusPaid {
		return ledger.ErrInvoiceImmutable
	}
	f.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id, ownerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	if !ledger.Deletable(inv) {
		return ledger.ErrInvoiceImmutable
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id, ownerID int, target models.InvoiceStatus, now time.Time) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, ledger.ErrNotFound
	}
	if err := ledger.Transition(inv, target, now); err != nil {
		return nil, err
	}
	return cloneInvoice(inv), nil
}

func (f *fakeStore) MarkViewed(ctx context.Context, id int, now time.Time) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if err := ledger.MarkViewed(inv, now); err != nil {
		return nil, err
	}
	return cloneInvoice(inv), nil
}

func (f *fakeStore) ApplyPayment(ctx context.Context, invoiceID, ownerID int, amount float64, method string, paymentDate time.Time, notes string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok || inv.OwnerID != ownerID {
		return nil, ledger.ErrNotFound
	}
	if err := ledger.ApplyPayment(inv, amount, time.Now()); err != nil {
		return nil, err
	}

	f.nextPayment++
	p := &models.Payment{
		ID:          f.nextPayment,
		InvoiceID:   invoiceID,
		Amount:      amount,
		Method:      method,
		Status:      models.PaymentStatusCompleted,
		PaymentDate: paymentDate,
		Notes:       notes,
	}
	f.payments[p.ID] = clonePayment(p)
	return p, nil
}

func (f *fakeStore) SummaryByOwner(ctx context.Context, ownerID int) (*models.DashboardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.DashboardSummary{}
	now := time.Now()
	for _, inv := range f.invoices {
		if inv.OwnerID != ownerID {
			continue
		}
		s.TotalInvoices++
		switch inv.Status {
		case models.InvoiceStatusDraft:
			s.DraftCount++
		case models.InvoiceStatusSent:
			s.SentCount++
		case models.InvoiceStatusViewed:
			s.ViewedCount++
		case models.InvoiceStatusPaid:
			s.PaidCount++
		}
		if inv.Status != models.InvoiceStatusPaid {
			s.TotalOutstanding = ledger.Round2(s.TotalOutstanding + inv.AmountDue)
			if now.After(inv.DueDate) {
				s.OverdueCount++
			}
		}
		s.TotalCollected = ledger.Round2(s.TotalCollected + inv.AmountPaid)
	}
	return s, nil
}

func (f *fakeStore) CreatePending(ctx context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPayment++
	p.ID = f.nextPayment
	p.Status = models.PaymentStatusPending
	f.payments[p.ID] = clonePayment(p)
	return nil
}

func (f *fakeStore) GetPayment(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getPaymentLocked(id, ownerID)
}

func (f *fakeStore) getPaymentLocked(id, ownerID int) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	inv, ok := f.invoices[p.InvoiceID]
	if !ok || inv.OwnerID != ownerID {
		return nil, ledger.ErrNotFound
	}
	return clonePayment(p), nil
}

func (f *fakeStore) ListByInvoice(ctx context.Context, invoiceID, ownerID int) ([]*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Payment
	for _, p := range f.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePending(ctx context.Context, p *models.Payment, ownerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.getPaymentLocked(p.ID, ownerID)
	if err != nil {
		return err
	}
	if current.Status == models.PaymentStatusCompleted {
		return ledger.ErrPaymentImmutable
	}
	f.payments[p.ID] = clonePayment(p)
	return nil
}

func (f *fakeStore) DeletePayment(ctx context.Context, id, ownerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.getPaymentLocked(id, ownerID)
	if err != nil {
		return err
	}
	if current.Status == models.PaymentStatusCompleted {
		return ledger.ErrPaymentImmutable
	}
	delete(f.payments, id)
	return nil
}

func (f *fakeStore) Complete(ctx context.Context, id, ownerID int, now time.Time) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.getPaymentLocked(id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return nil, ledger.ErrPaymentImmutable
	}

	inv := f.invoices[p.InvoiceID]
	if err := ledger.ApplyPayment(inv, p.Amount, now); err != nil {
		return nil, err
	}

	p.Status = models.PaymentStatusCompleted
	f.payments[id] = clonePayment(p)
	return p, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.getPaymentLocked(id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return nil, ledger.ErrPaymentImmutable
	}
	p.Status = models.PaymentStatusFailed
	f.payments[id] = clonePayment(p)
	return p, nil
}

func (f *fakeStore) BelongsTo(ctx context.Context, clientID, ownerID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[clientID] == ownerID, nil
}

// paymentStoreAdapter maps the fake's method names onto the PaymentStore
// interface where they differ from the invoice-side names.
type paymentStoreAdapter struct{ *fakeStore }

func (a paymentStoreAdapter) Get(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	return a.GetPayment(ctx, id, ownerID)
}

func (a paymentStoreAdapter) Delete(ctx context.Context, id, ownerID int) error {
	return a.DeletePayment(ctx, id, ownerID)
}

func newTestService(plan string) (*LedgerService, *fakeStore) {
	store := newFakeStore(plan)
	return NewLedgerService(store, paymentStoreAdapter{store}, store), store
}

func createRequest() *models.CreateInvoiceRequest {
	now := time.Now()
	return &models.CreateInvoiceRequest{
		ClientID:       10,
		IssueDate:      now,
		DueDate:        now.Add(14 * 24 * time.Hour),
		Currency:       "usd",
		TaxRatePercent: 10,
		Items: []models.LineItemInput{
			{Description: "Design work", Quantity: 2, Rate: 100},
			{Description: "Hosting", Quantity: 1, Rate: 50},
		},
	}
}

func TestCreateInvoice(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, 250.0, inv.Subtotal)
	assert.Equal(t, 25.0, inv.TaxAmount)
	assert.Equal(t, 275.0, inv.Total)
	assert.Equal(t, 275.0, inv.AmountDue)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 200.0, inv.Items[0].Amount)
}

func TestCreateInvoiceForeignClient(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	req := createRequest()
	req.ClientID = 99

	_, err := svc.CreateInvoice(context.Background(), 1, req)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCreateInvoiceInvalidItems(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	req := createRequest()
	req.Items = nil

	_, err := svc.CreateInvoice(context.Background(), 1, req)
	assert.ErrorIs(t, err, ledger.ErrInvalidLineItem)
}

func TestConcurrentCreationRespectsQuota(t *testing.T) {
	svc, store := newTestService(models.PlanFree) // limit 5

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateInvoice(context.Background(), 1, createRequest())
		}(i)
	}
	wg.Wait()

	created, denied := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		default:
			require.ErrorIs(t, err, ledger.ErrQuotaExceeded)
			denied++
		}
	}

	assert.Equal(t, 5, created)
	assert.Equal(t, 15, denied)
	assert.Equal(t, 5, store.sub.InvoicesSent)
	assert.Len(t, store.invoices, 5)
}

func TestConcurrentPaymentsNeverOvershoot(t *testing.T) {
	svc, store := newTestService(models.PlanPro)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)
	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)

	// Total is 275; 20 racing payments of 100 can settle at most 2 before
	// the remainder (75) rejects a third.
	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 100})
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
		} else {
			require.ErrorIs(t, err, ledger.ErrPaymentExceedsAmountDue)
		}
	}

	assert.Equal(t, 2, applied)
	final := store.invoices[inv.ID]
	assert.Equal(t, 200.0, final.AmountPaid)
	assert.Equal(t, 75.0, final.AmountDue)
	assert.Equal(t, models.InvoiceStatusSent, final.Status)
}

func TestPaymentSettlesInvoice(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)
	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 150})
	require.NoError(t, err)

	got, err := svc.GetInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 125.0, got.AmountDue)
	assert.Equal(t, models.InvoiceStatusSent, got.Status)

	_, err = svc.ApplyPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 125})
	require.NoError(t, err)

	got, err = svc.GetInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.AmountDue)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)
}

func TestUpdatePaidInvoiceRejected(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)
	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 275})
	require.NoError(t, err)

	notes := "late edit"
	_, err = svc.UpdateInvoice(context.Background(), inv.ID, 1, &models.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, ledger.ErrInvoiceImmutable)

	err = svc.DeleteInvoice(context.Background(), inv.ID, 1)
	assert.ErrorIs(t, err, ledger.ErrInvoiceImmutable)
}

func TestUpdateInvoiceRecomputesTotals(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)

	discount := 50.0
	got, err := svc.UpdateInvoice(context.Background(), inv.ID, 1, &models.UpdateInvoiceRequest{
		DiscountAmount: &discount,
	})
	require.NoError(t, err)

	// (250 - 50) * 1.10 = 220
	assert.Equal(t, 250.0, got.Subtotal)
	assert.Equal(t, 20.0, got.TaxAmount)
	assert.Equal(t, 220.0, got.Total)
	assert.Equal(t, 220.0, got.AmountDue)
}

func TestUpdateCannotDropTotalBelowPaid(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)
	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 200})
	require.NoError(t, err)

	_, err = svc.UpdateInvoice(context.Background(), inv.ID, 1, &models.UpdateInvoiceRequest{
		Items: []models.LineItemInput{{Description: "tiny", Quantity: 1, Rate: 10}},
	})
	assert.ErrorIs(t, err, ledger.ErrTotalBelowAmountPaid)
}

func TestMarkViewedPublicFlow(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)

	// Draft has no view link.
	_, err = svc.MarkInvoiceViewed(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)

	viewed, err := svc.MarkInvoiceViewed(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusViewed, viewed.Status)

	// Re-click is harmless.
	again, err := svc.MarkInvoiceViewed(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, viewed.ViewedAt, again.ViewedAt)
}

func TestPendingPaymentLifecycle(t *testing.T) {
	svc, store := newTestService(models.PlanFree)

	inv, err := svc.CreateInvoice(context.Background(), 1, createRequest())
	require.NoError(t, err)
	_, err = svc.TransitionInvoice(context.Background(), inv.ID, 1, models.InvoiceStatusSent)
	require.NoError(t, err)

	p, err := svc.CreatePendingPayment(context.Background(), inv.ID, 1, &models.ApplyPaymentRequest{Amount: 275, Method: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)

	// Pending payments do not touch the balance.
	got, err := svc.GetInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 275.0, got.AmountDue)

	completed, err := svc.CompletePayment(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, completed.Status)

	final := store.invoices[inv.ID]
	assert.Equal(t, 0.0, final.AmountDue)
	assert.Equal(t, models.InvoiceStatusPaid, final.Status)

	// A completed payment is immutable.
	_, err = svc.CompletePayment(context.Background(), p.ID, 1)
	assert.ErrorIs(t, err, ledger.ErrPaymentImmutable)
	amount := 10.0
	_, err = svc.UpdatePendingPayment(context.Background(), p.ID, 1, &models.UpdatePaymentRequest{Amount: &amount})
	assert.ErrorIs(t, err, ledger.ErrPaymentImmutable)
	err = svc.DeletePayment(context.Background(), p.ID, 1)
	assert.ErrorIs(t, err, ledger.ErrPaymentImmutable)
}

func TestPreviewTotals(t *testing.T) {
	svc, _ := newTestService(models.PlanFree)

	resp, err := svc.PreviewTotals(&models.PreviewRequest{
		TaxRatePercent: 10,
		Items: []models.LineItemInput{
			{Description: "Design work", Quantity: 2, Rate: 100},
			{Description: "Hosting", Quantity: 1, Rate: 50},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 250.0, resp.Subtotal)
	assert.Equal(t, 25.0, resp.TaxAmount)
	assert.Equal(t, 275.0, resp.Total)
}
