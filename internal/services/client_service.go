package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/metrics"
	"lancebill-backend/internal/models"
	"lancebill-backend/internal/repositories"
)

type ClientService struct {
	clients *repositories.ClientRepository
}

func NewClientService(clients *repositories.ClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

// Create adds a client, consuming one client quota slot.
func (s *ClientService) Create(ctx context.Context, ownerID int, req *models.CreateClientRequest) (*models.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	client := &models.Client{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Company: req.Company,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			metrics.QuotaDenialsTotal.WithLabelValues(string(ledger.ResourceClient)).Inc()
		}
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, id, ownerID int) (*models.Client, error) {
	return s.clients.Get(ctx, id, ownerID)
}

func (s *ClientService) List(ctx context.Context, ownerID int) ([]*models.Client, error) {
	return s.clients.ListByOwner(ctx, ownerID)
}

func (s *ClientService) Update(ctx context.Context, id, ownerID int, req *models.UpdateClientRequest) (*models.Client, error) {
	client, err := s.clients.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		client.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Company != nil {
		client.Company = *req.Company
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client that has no invoices. The quota counter is not
// decremented; usage only resets at billing rollover.
func (s *ClientService) Delete(ctx context.Context, id, ownerID int) error {
	return s.clients.Delete(ctx, id, ownerID)
}
