package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
)

type SubscriptionRepository struct {
	DB *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

const subscriptionColumns = `id, owner_id, plan, status, invoice_limit, client_limit,
	       invoices_sent, clients_created, monthly_price, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.OwnerID,
		&sub.Plan,
		&sub.Status,
		&sub.InvoiceLimit,
		&sub.ClientLimit,
		&sub.InvoicesSent,
		&sub.ClientsCreated,
		&sub.MonthlyPrice,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) GetByOwner(ctx context.Context, ownerID int) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE owner_id = $1`, subscriptionColumns)

	sub, err := scanSubscription(r.DB.QueryRow(ctx, query, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrNoSubscription
		}
		return nil, translateErr(err)
	}
	return sub, nil
}

// lockSubscription loads the owner's subscription row FOR UPDATE inside the
// given transaction. Every quota check-and-increment serializes on this row.
func lockSubscription(ctx context.Context, tx pgx.Tx, ownerID int) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE owner_id = $1 FOR UPDATE`, subscriptionColumns)

	sub, err := scanSubscription(tx.QueryRow(ctx, query, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrNoSubscription
		}
		return nil, translateErr(err)
	}
	return sub, nil
}

// saveCounters persists the usage counters after a granted reservation.
func saveCounters(ctx context.Context, tx pgx.Tx, sub *models.Subscription) error {
	_, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET invoices_sent = $1, clients_created = $2, updated_at = NOW()
		WHERE id = $3
	`, sub.InvoicesSent, sub.ClientsCreated, sub.ID)
	return err
}

// ReserveQuota atomically checks and increments the counter for the given
// resource. The row lock plus bounded lock_timeout makes this safe across
// concurrent requests and across service instances.
func (r *SubscriptionRepository) ReserveQuota(ctx context.Context, ownerID int, resource ledger.Resource) (*models.Reservation, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubscription(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	reservation, err := ledger.ReserveQuota(sub, resource)
	if err != nil {
		return nil, err
	}

	if err := saveCounters(ctx, tx, sub); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return reservation, nil
}

// UpdatePlan rewrites limits and price from the plan catalog. Counters are
// untouched: they reset only at billing-period rollover.
func (r *SubscriptionRepository) UpdatePlan(ctx context.Context, ownerID int, plan string) (*models.Subscription, error) {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return nil, translateErr(err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubscription(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := ledger.ChangePlan(sub, plan); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE subscriptions
		SET plan = $1, invoice_limit = $2, client_limit = $3, monthly_price = $4, updated_at = NOW()
		WHERE id = $5
	`, sub.Plan, sub.InvoiceLimit, sub.ClientLimit, sub.MonthlyPrice, sub.ID)
	if err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return sub, nil
}
