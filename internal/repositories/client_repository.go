package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
)

// ErrClientHasInvoices guards referential integrity: a client that is
// referenced by invoices cannot be deleted.
var ErrClientHasInvoices = errors.New("client has invoices")

type ClientRepository struct {
	DB *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{DB: db}
}

// Create consumes a client quota slot and inserts the client in the same
// transaction, so a failed insert rolls the counter back.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubscription(ctx, tx, client.OwnerID)
	if err != nil {
		return err
	}

	if _, err := ledger.ReserveQuota(sub, ledger.ResourceClient); err != nil {
		return err
	}

	query := `
		INSERT INTO clients (owner_id, name, email, company, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		client.OwnerID,
		client.Name,
		client.Email,
		client.Company,
		client.Phone,
		client.Address,
		client.Notes,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}

	if err := saveCounters(ctx, tx, sub); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

func (r *ClientRepository) Get(ctx context.Context, id, ownerID int) (*models.Client, error) {
	query := `
		SELECT id, owner_id, name, email, company, phone, address, notes, created_at, updated_at
		FROM clients
		WHERE id = $1 AND owner_id = $2
	`

	client := &models.Client{}
	err := r.DB.QueryRow(ctx, query, id, ownerID).Scan(
		&client.ID,
		&client.OwnerID,
		&client.Name,
		&client.Email,
		&client.Company,
		&client.Phone,
		&client.Address,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}

	return client, nil
}

func (r *ClientRepository) ListByOwner(ctx context.Context, ownerID int) ([]*models.Client, error) {
	query := `
		SELECT id, owner_id, name, email, company, phone, address, notes, created_at, updated_at
		FROM clients
		WHERE owner_id = $1
		ORDER BY name ASC
	`

	rows, err := r.DB.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client := &models.Client{}
		err := rows.Scan(
			&client.ID,
			&client.OwnerID,
			&client.Name,
			&client.Email,
			&client.Company,
			&client.Phone,
			&client.Address,
			&client.Notes,
			&client.CreatedAt,
			&client.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return clients, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET name = $1, email = $2, company = $3, phone = $4, address = $5, notes = $6, updated_at = NOW()
		WHERE id = $7 AND owner_id = $8
		RETURNING updated_at
	`

	err := r.DB.QueryRow(ctx, query,
		client.Name,
		client.Email,
		client.Company,
		client.Phone,
		client.Address,
		client.Notes,
		client.ID,
		client.OwnerID,
	).Scan(&client.UpdatedAt)
	return translateErr(err)
}

// Delete removes a client with no invoices. Deleting the client does not
// touch the subscription counter: counters are monotonic within a period.
func (r *ClientRepository) Delete(ctx context.Context, id, ownerID int) error {
	tx, err := beginLocked(ctx, r.DB)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1 AND owner_id = $2)",
		id, ownerID,
	).Scan(&exists)
	if err != nil {
		return translateErr(err)
	}
	if !exists {
		return ledger.ErrNotFound
	}

	var invoiceCount int
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM invoices WHERE client_id = $1", id).Scan(&invoiceCount)
	if err != nil {
		return translateErr(err)
	}
	if invoiceCount > 0 {
		return ErrClientHasInvoices
	}

	if _, err := tx.Exec(ctx, "DELETE FROM clients WHERE id = $1 AND owner_id = $2", id, ownerID); err != nil {
		return translateErr(err)
	}

	return translateErr(tx.Commit(ctx))
}

// BelongsTo is the ownership check consumed by invoice creation.
func (r *ClientRepository) BelongsTo(ctx context.Context, clientID, ownerID int) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1 AND owner_id = $2)",
		clientID, ownerID,
	).Scan(&exists)
	return exists, err
}
