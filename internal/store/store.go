// Package store persists campaigns and the expensive external-call caches.
package store

import (
	"context"
	"time"

	"github.com/outrage-civic/outrage-api/internal/model"
)

// CampaignFilter specifies criteria for listing campaigns.
type CampaignFilter struct {
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the outreach service.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error)
	IncrementCampaignSent(ctx context.Context, id string) error
	IncrementCampaignViews(ctx context.Context, id string) error

	// Representative lookup cache, keyed by normalized-address hash.
	// A nil slice with nil error means cache miss.
	GetCachedRepresentatives(ctx context.Context, addressHash string) ([]model.Representative, error)
	SetCachedRepresentatives(ctx context.Context, addressHash string, reps []model.Representative, ttl time.Duration) error

	// Form analysis cache, keyed by request hash. Nil data means miss.
	GetCachedFormAnalysis(ctx context.Context, requestHash string) ([]byte, error)
	SetCachedFormAnalysis(ctx context.Context, requestHash string, data []byte, ttl time.Duration) error

	DeleteExpiredCache(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NotFoundError is returned for lookups of absent campaigns.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "store: campaign not found: " + e.ID
}
