package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/models"
)

type AccountRepository struct {
	DB *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{DB: db}
}

// Create inserts the account together with its free-plan subscription in one
// transaction, so an account can never exist without a subscription row.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}

	free := models.PlanCatalog[models.PlanFree]
	_, err = tx.Exec(ctx, `
		INSERT INTO subscriptions (owner_id, plan, status, invoice_limit, client_limit, monthly_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.ID, models.PlanFree, models.SubscriptionStatusActive,
		free.InvoiceLimit, free.ClientLimit, free.MonthlyPrice)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *AccountRepository) Get(ctx context.Context, id int) (*models.Account, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	account := &models.Account{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}

	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	account := &models.Account{}
	err := r.DB.QueryRow(ctx, query, email).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}

	return account, nil
}
