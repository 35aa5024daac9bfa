package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
)

type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

const invoiceColumns = `id, owner_id, client_id, invoice_number, issue_date, due_date, currency,
	       tax_rate_percent, discount_amount, subtotal, tax_amount, total,
	       amount_paid, amount_due, status, COALESCE(notes, ''),
	       sent_at, viewed_at, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := row.Scan(
		&inv.ID,
		&inv.OwnerID,
		&inv.ClientID,
		&inv.InvoiceNumber,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Currency,
		&inv.TaxRatePercent,
		&inv.DiscountAmount,
		&inv.Subtotal,
		&inv.TaxAmount,
		&inv.Total,
		&inv.AmountPaid,
		&inv.AmountDue,
		&inv.Status,
		&inv.Notes,
		&inv.SentAt,
		&inv.ViewedAt,
		&inv.PaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// generateInvoiceNumber uses a database sequence for O(1) numbering.
func generateInvoiceNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	var nextNum int
	if err := tx.QueryRow(ctx, "SELECT nextval('invoice_number_sequence')").Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to get next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%06d", nextNum), nil
}

// Create reserves an invoice quota slot and inserts the invoice with its
// line items as one transaction. The subscription row lock is the
// serialization point: two concurrent creations for the same account cannot
// both pass the quota check when one slot remains.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubscription(ctx, tx, inv.OwnerID)
	if err != nil {
		return err
	}

	if _, err := ledger.ReserveQuota(sub, ledger.ResourceInvoice); err != nil {
		return err
	}

	number, err := generateInvoiceNumber(ctx, tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO invoices (owner_id, client_id, invoice_number, issue_date, due_date, currency,
		                      tax_rate_percent, discount_amount, subtotal, tax_amount, total,
		                      amount_paid, amount_due, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		inv.OwnerID,
		inv.ClientID,
		number,
		inv.IssueDate,
		inv.DueDate,
		inv.Currency,
		inv.TaxRatePercent,
		inv.DiscountAmount,
		inv.Subtotal,
		inv.TaxAmount,
		inv.Total,
		inv.AmountPaid,
		inv.AmountDue,
		inv.Status,
		inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	inv.InvoiceNumber = number

	if err := insertLineItems(ctx, tx, inv.ID, inv.Items); err != nil {
		return translateErr(err)
	}

	if err := saveCounters(ctx, tx, sub); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

func insertLineItems(ctx context.Context, tx pgx.Tx, invoiceID int, items []models.InvoiceLineItem) error {
	query := `
		INSERT INTO invoice_line_items (invoice_id, position, description, quantity, rate, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for i := range items {
		items[i].InvoiceID = invoiceID
		items[i].Position = i + 1
		err := tx.QueryRow(ctx, query,
			invoiceID,
			items[i].Position,
			items[i].Description,
			items[i].Quantity,
			items[i].Rate,
			items[i].Amount,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, invoiceID int) ([]models.InvoiceLineItem, error) {
	query := `
		SELECT id, invoice_id, position, description, quantity, rate, amount
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY position ASC
	`

	rows, err := r.DB.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InvoiceLineItem
	for rows.Next() {
		var item models.InvoiceLineItem
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.Position, &item.Description,
			&item.Quantity, &item.Rate, &item.Amount)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Get returns one invoice with its line items. Ownership failures read the
// same as absence.
func (r *InvoiceRepository) Get(ctx context.Context, id, ownerID int) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND owner_id = $2`, invoiceColumns)

	inv, err := scanInvoice(r.DB.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, translateErr(err)
	}

	inv.Items, err = r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByOwner(ctx context.Context, ownerID int) ([]*models.Invoice, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM invoices
		WHERE owner_id = $1
		ORDER BY issue_date DESC, id DESC
	`, invoiceColumns)

	rows, err := r.DB.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

// lockInvoice loads the invoice row FOR UPDATE. All balance and status
// mutations serialize on this lock.
func lockInvoice(ctx context.Context, tx pgx.Tx, id int, ownerID *int) (*models.Invoice, error) {
	var row pgx.Row
	if ownerID != nil {
		query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND owner_id = $2 FOR UPDATE`, invoiceColumns)
		row = tx.QueryRow(ctx, query, id, *ownerID)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, invoiceColumns)
		row = tx.QueryRow(ctx, query, id)
	}

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, translateErr(err)
	}
	return inv, nil
}

func saveInvoiceState(ctx context.Context, tx pgx.Tx, inv *models.Invoice) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices
		SET amount_paid = $1, amount_due = $2, status = $3,
		    sent_at = $4, viewed_at = $5, paid_at = $6, updated_at = NOW()
		WHERE id = $7
	`, inv.AmountPaid, inv.AmountDue, inv.Status, inv.SentAt, inv.ViewedAt, inv.PaidAt, inv.ID)
	return err
}

// Update replaces the mutable fields and the full line-item set of a
// non-paid invoice. The amount due is recomputed under the row lock against
// the amount actually paid, so a racing payment cannot be overwritten with
// stale data.
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	current, err := lockInvoice(ctx, tx, inv.ID, &inv.OwnerID)
	if err != nil {
		return err
	}

	// Re-derive the balance from the locked row, not the caller's read.
	inv.Status = current.Status
	inv.AmountPaid = current.AmountPaid
	totals := ledger.Totals{Subtotal: inv.Subtotal, TaxAmount: inv.TaxAmount, Total: inv.Total}
	if err := ledger.Retotal(inv, totals, inv.DiscountAmount, inv.TaxRatePercent); err != nil {
		return err
	}

	query := `
		UPDATE invoices
		SET client_id = $1, issue_date = $2, due_date = $3, currency = $4,
		    tax_rate_percent = $5, discount_amount = $6, subtotal = $7, tax_amount = $8,
		    total = $9, amount_due = $10, notes = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, query,
		inv.ClientID,
		inv.IssueDate,
		inv.DueDate,
		inv.Currency,
		inv.TaxRatePercent,
		inv.DiscountAmount,
		inv.Subtotal,
		inv.TaxAmount,
		inv.Total,
		inv.AmountDue,
		inv.Notes,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_line_items WHERE invoice_id = $1", inv.ID); err != nil {
		return translateErr(err)
	}
	if err := insertLineItems(ctx, tx, inv.ID, inv.Items); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

// Delete destroys a non-paid invoice with its line items and payments.
func (r *InvoiceRepository) Delete(ctx context.Context, id, ownerID int) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, id, &ownerID)
	if err != nil {
		return err
	}

	if !ledger.Deletable(inv) {
		return ledger.ErrInvoiceImmutable
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

// TransitionStatus drives the state machine for the direct entry point.
func (r *InvoiceRepository) TransitionStatus(ctx context.Context, id, ownerID int, target models.InvoiceStatus, now time.Time) (*models.Invoice, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, id, &ownerID)
	if err != nil {
		return nil, err
	}

	if err := ledger.Transition(inv, target, now); err != nil {
		return nil, err
	}

	if err := saveInvoiceState(ctx, tx, inv); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return inv, nil
}

// MarkViewed records the client-facing view event. No ownership check: the
// route is public. Nothing beyond status and viewed_at is mutated.
func (r *InvoiceRepository) MarkViewed(ctx context.Context, id int, now time.Time) (*models.Invoice, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, id, nil)
	if err != nil {
		return nil, err
	}

	if err := ledger.MarkViewed(inv, now); err != nil {
		return nil, err
	}

	if err := saveInvoiceState(ctx, tx, inv); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return inv, nil
}

// ApplyPayment validates and applies a payment inside one transaction: the
// completed payment row, the invoice balance, and any status flip commit
// together or not at all. The invoice row lock makes the read-validate-write
// sequence serializable; a concurrent writer that loses the race re-reads
// fresh state or times out with Contention.
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, invoiceID, ownerID int, amount float64, method string, paymentDate time.Time, notes string) (*models.Payment, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, invoiceID, &ownerID)
	if err != nil {
		return nil, err
	}

	if err := ledger.ApplyPayment(inv, amount, time.Now()); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		InvoiceID:   invoiceID,
		Amount:      amount,
		Method:      method,
		Status:      models.PaymentStatusCompleted,
		PaymentDate: paymentDate,
		Notes:       notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, method, status, payment_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, payment.InvoiceID, payment.Amount, payment.Method, payment.Status,
		payment.PaymentDate, payment.Notes,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}

	if err := saveInvoiceState(ctx, tx, inv); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return payment, nil
}

// SummaryByOwner aggregates committed rows for the dashboard read model.
// Reads take no locks; the overdue count is derived at query time.
func (r *InvoiceRepository) SummaryByOwner(ctx context.Context, ownerID int) (*models.DashboardSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'viewed'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status != 'paid' AND due_date < NOW()),
			COALESCE(SUM(amount_due) FILTER (WHERE status != 'paid'), 0),
			COALESCE(SUM(amount_paid), 0)
		FROM invoices
		WHERE owner_id = $1
	`

	s := &models.DashboardSummary{}
	err := r.DB.QueryRow(ctx, query, ownerID).Scan(
		&s.TotalInvoices,
		&s.DraftCount,
		&s.SentCount,
		&s.ViewedCount,
		&s.PaidCount,
		&s.OverdueCount,
		&s.TotalOutstanding,
		&s.TotalCollected,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
