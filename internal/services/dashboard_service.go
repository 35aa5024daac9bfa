package services

import (
	"context"
	"encoding/json"

	"lancebill-backend/internal/cache"
	"lancebill-backend/internal/models"
)

// DashboardService serves the per-owner summary with a short Redis
// read-through. Mutating services invalidate the key, and the 60 second TTL
// bounds staleness when invalidation is missed.
type DashboardService struct {
	invoices InvoiceStore
}

func NewDashboardService(invoices InvoiceStore) *DashboardService {
	return &DashboardService{invoices: invoices}
}

func (s *DashboardService) Summary(ctx context.Context, ownerID int) (*models.DashboardSummary, error) {
	if data, ok := cache.GetCachedDashboard(ctx, ownerID); ok {
		summary := &models.DashboardSummary{}
		if err := json.Unmarshal(data, summary); err == nil {
			return summary, nil
		}
	}

	summary, err := s.invoices.SummaryByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(summary); err == nil {
		cache.CacheDashboard(ctx, ownerID, data)
	}
	return summary, nil
}
