package services

import (
	"context"
	"errors"
	"log"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/metrics"
	"lancebill-backend/internal/models"
	"lancebill-backend/internal/repositories"
)

type SubscriptionService struct {
	subscriptions *repositories.SubscriptionRepository
}

func NewSubscriptionService(subscriptions *repositories.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subscriptions: subscriptions}
}

func (s *SubscriptionService) Get(ctx context.Context, ownerID int) (*models.Subscription, error) {
	return s.subscriptions.GetByOwner(ctx, ownerID)
}

// ChangePlan moves the account to another plan tier. Limits and price come
// from the catalog; running counters are untouched, so a downgrade below
// current usage only blocks new creations.
func (s *SubscriptionService) ChangePlan(ctx context.Context, ownerID int, plan string) (*models.Subscription, error) {
	sub, err := s.subscriptions.UpdatePlan(ctx, ownerID, plan)
	if err != nil {
		return nil, err
	}
	log.Printf("[Subscription] Owner %d moved to plan %s", ownerID, plan)
	return sub, nil
}

// Reserve consumes one quota slot for the given resource. Invoice and
// client creation reserve inline in their own transactions; this entry
// point serves external quota checks.
func (s *SubscriptionService) Reserve(ctx context.Context, ownerID int, resource ledger.Resource) (*models.Reservation, error) {
	if !resource.Valid() {
		return nil, ledger.ErrInvalidResource
	}
	res, err := s.subscriptions.ReserveQuota(ctx, ownerID, resource)
	if err != nil {
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			metrics.QuotaDenialsTotal.WithLabelValues(string(resource)).Inc()
		}
		return nil, err
	}
	return res, nil
}
