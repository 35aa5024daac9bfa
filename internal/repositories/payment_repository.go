package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `p.id, p.invoice_id, p.amount, p.method, p.status,
	       p.payment_date, COALESCE(p.notes, ''), p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID,
		&p.InvoiceID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.PaymentDate,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePending records an expected payment without touching the invoice.
// The balance only moves when the payment later completes.
func (r *PaymentRepository) CreatePending(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (invoice_id, amount, method, status, payment_date, notes)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id, status, created_at, updated_at
	`
	err := r.DB.QueryRow(ctx, query,
		p.InvoiceID, p.Amount, p.Method, p.PaymentDate, p.Notes,
	).Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return translateErr(err)
}

// Get returns one payment, scoped to the owner through its invoice.
func (r *PaymentRepository) Get(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.id = $1 AND i.owner_id = $2
	`

	p, err := scanPayment(r.DB.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID, ownerID int) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.invoice_id = $1 AND i.owner_id = $2
		ORDER BY p.payment_date DESC, p.id DESC
	`

	rows, err := r.DB.Query(ctx, query, invoiceID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// lockPayment loads the payment row FOR UPDATE, owner-scoped through the
// invoice join.
func lockPayment(ctx context.Context, tx pgx.Tx, id, ownerID int) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.id = $1 AND i.owner_id = $2
		FOR UPDATE OF p
	`

	p, err := scanPayment(tx.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

// UpdatePending patches a payment that has not completed. Completed
// payments are immutable ledger entries.
func (r *PaymentRepository) UpdatePending(ctx context.Context, p *models.Payment, ownerID int) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	current, err := lockPayment(ctx, tx, p.ID, ownerID)
	if err != nil {
		return err
	}
	if current.Status == models.PaymentStatusCompleted {
		return ledger.ErrPaymentImmutable
	}

	query := `
		UPDATE payments
		SET amount = $1, method = $2, payment_date = $3, notes = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, query, p.Amount, p.Method, p.PaymentDate, p.Notes, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

// Delete removes a pending or failed payment. Completed payments stay.
func (r *PaymentRepository) Delete(ctx context.Context, id, ownerID int) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	p, err := lockPayment(ctx, tx, id, ownerID)
	if err != nil {
		return err
	}
	if p.Status == models.PaymentStatusCompleted {
		return ledger.ErrPaymentImmutable
	}

	if _, err := tx.Exec(ctx, "DELETE FROM payments WHERE id = $1", id); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

// Complete flips a pending payment to completed and applies its amount to
// the invoice in the same transaction. Lock order is payment then invoice,
// matching every other writer that touches both tables.
func (r *PaymentRepository) Complete(ctx context.Context, id, ownerID int, now time.Time) (*models.Payment, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	p, err := lockPayment(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return nil, ledger.ErrPaymentImmutable
	}

	inv, err := lockInvoice(ctx, tx, p.InvoiceID, &ownerID)
	if err != nil {
		return nil, err
	}

	if err := ledger.ApplyPayment(inv, p.Amount, now); err != nil {
		return nil, err
	}

	p.Status = models.PaymentStatusCompleted
	err = tx.QueryRow(ctx, `
		UPDATE payments SET status = 'completed', updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}

	if err := saveInvoiceState(ctx, tx, inv); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

// MarkFailed records that an expected payment fell through.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id, ownerID int) (*models.Payment, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	p, err := lockPayment(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return nil, ledger.ErrPaymentImmutable
	}

	p.Status = models.PaymentStatusFailed
	err = tx.QueryRow(ctx, `
		UPDATE payments SET status = 'failed', updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}
