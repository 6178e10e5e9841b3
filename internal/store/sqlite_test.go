package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outrage-civic/outrage-api/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "outrage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteCampaignLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateCampaign(ctx, model.Campaign{
		Title:             "Fix the Potholes",
		Message:           "Dear council...",
		Demands:           []string{"repave Main St", "add bike lanes"},
		RepresentativeIDs: []string{"cicero-123", "jane-smith-mayor"},
		City:              "Springfield",
		State:             "IL",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fix the Potholes", got.Title)
	assert.Equal(t, []string{"repave Main St", "add bike lanes"}, got.Demands)
	assert.Equal(t, []string{"cicero-123", "jane-smith-mayor"}, got.RepresentativeIDs)
	assert.Zero(t, got.MessageSentCount)
	assert.Zero(t, got.ViewCount)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)

	require.NoError(t, s.IncrementCampaignSent(ctx, created.ID))
	require.NoError(t, s.IncrementCampaignViews(ctx, created.ID))
	require.NoError(t, s.IncrementCampaignViews(ctx, created.ID))

	got, err = s.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageSentCount)
	assert.Equal(t, 2, got.ViewCount)
}

func TestSQLiteCampaignNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var nf *NotFoundError

	_, err := s.GetCampaign(ctx, "missing")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)

	require.ErrorAs(t, s.IncrementCampaignSent(ctx, "missing"), &nf)
	require.ErrorAs(t, s.IncrementCampaignViews(ctx, "missing"), &nf)
}

func TestSQLiteListCampaigns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, c := range []model.Campaign{
		{Title: "Springfield Roads", Message: "m", City: "Springfield", State: "IL"},
		{Title: "Chicago Transit", Message: "m", City: "Chicago", State: "IL"},
		{Title: "Portland Parks", Message: "m", City: "Portland", State: "OR"},
	} {
		_, err := s.CreateCampaign(ctx, c)
		require.NoError(t, err)
	}

	all, err := s.ListCampaigns(ctx, CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	il, err := s.ListCampaigns(ctx, CampaignFilter{State: "IL"})
	require.NoError(t, err)
	assert.Len(t, il, 2)

	chicago, err := s.ListCampaigns(ctx, CampaignFilter{City: "Chicago"})
	require.NoError(t, err)
	require.Len(t, chicago, 1)
	assert.Equal(t, "Chicago Transit", chicago[0].Title)

	limited, err := s.ListCampaigns(ctx, CampaignFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteRepCache(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetCachedRepresentatives(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	reps := []model.Representative{{
		ID:     "cicero-123",
		Name:   "Jane Smith",
		Office: "Mayor of Springfield, IL",
		Level:  model.LevelLocal,
	}}
	require.NoError(t, s.SetCachedRepresentatives(ctx, "hash-1", reps, time.Hour))

	got, err = s.GetCachedRepresentatives(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, reps, got)

	// Expired entries read as misses and are reaped.
	require.NoError(t, s.SetCachedRepresentatives(ctx, "hash-2", reps, -time.Minute))

	got, err = s.GetCachedRepresentatives(ctx, "hash-2")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteFormCache(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	payload := []byte(`{"formSelector":"#contact-form"}`)
	require.NoError(t, s.SetCachedFormAnalysis(ctx, "hash-1", payload, time.Hour))

	got, err := s.GetCachedFormAnalysis(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Upsert replaces the stored analysis.
	updated := []byte(`{"formSelector":"#other-form"}`)
	require.NoError(t, s.SetCachedFormAnalysis(ctx, "hash-1", updated, time.Hour))

	got, err = s.GetCachedFormAnalysis(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}
