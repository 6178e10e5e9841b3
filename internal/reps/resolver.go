// Package reps turns free-text addresses into classified, contactable
// representatives, caching lookups by normalized address.
package reps

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/cicero"
)

// Cache is the subset of the store the resolver needs.
type Cache interface {
	GetCachedRepresentatives(ctx context.Context, addressHash string) ([]model.Representative, error)
	SetCachedRepresentatives(ctx context.Context, addressHash string, reps []model.Representative, ttl time.Duration) error
}

// Resolver resolves addresses to currently-serving representatives.
type Resolver struct {
	client cicero.Client
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
}

// NewResolver creates a Resolver. A nil cache disables caching.
func NewResolver(client cicero.Client, cache Cache, ttl time.Duration) *Resolver {
	return &Resolver{
		client: client,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NormalizeAddress lowercases, trims, and collapses whitespace so that
// trivially different spellings of one address share a cache entry.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// CacheKey returns the SHA-256 hex of the normalized address.
func CacheKey(address string) string {
	h := sha256.Sum256([]byte(NormalizeAddress(address)))
	return fmt.Sprintf("%x", h)
}

// Resolve returns the currently-serving representatives for an address.
// The second return reports whether the result came from cache. Zero
// location candidates from the provider yields an empty slice, not an error.
func (r *Resolver) Resolve(ctx context.Context, address string) ([]model.Representative, bool, error) {
	if strings.TrimSpace(address) == "" {
		return nil, false, apperr.New(apperr.KindValidation, "reps: address is required")
	}

	key := CacheKey(address)

	if r.cache != nil {
		cached, err := r.cache.GetCachedRepresentatives(ctx, key)
		if err != nil {
			zap.L().Warn("representative cache read failed", zap.Error(err))
		} else if cached != nil {
			zap.L().Debug("representative cache hit", zap.String("key", key[:12]))
			return cached, true, nil
		}
	}

	result, err := r.client.Lookup(ctx, address)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindUpstream, err, "reps: directory lookup")
	}

	reps := r.build(result)

	if r.cache != nil {
		if err := r.cache.SetCachedRepresentatives(ctx, key, reps, r.ttl); err != nil {
			zap.L().Warn("representative cache write failed", zap.Error(err))
		}
	}

	zap.L().Info("resolved representatives",
		zap.String("key", key[:12]),
		zap.Int("count", len(reps)),
	)
	return reps, false, nil
}

// build converts the first candidate's officials, dropping those outside
// their serving window.
func (r *Resolver) build(result *cicero.LookupResult) []model.Representative {
	if len(result.Candidates) == 0 {
		return []model.Representative{}
	}

	officials := result.Candidates[0].Officials
	reps := make([]model.Representative, 0, len(officials))
	today := r.now()

	for _, o := range officials {
		if !serving(o, today) {
			continue
		}
		level := Classify(o)
		reps = append(reps, model.Representative{
			ID:       officialID(o),
			Name:     o.Name(),
			Office:   OfficeTitle(o, level),
			Party:    o.Party,
			PhotoURL: o.PhotoOriginURL,
			Level:    level,
			Contacts: ExtractContacts(o),
		})
	}

	return reps
}

// serving reports whether the official's term window includes now.
// A missing valid_from means already started; a missing or null valid_to
// means not yet ended.
func serving(o cicero.Official, now time.Time) bool {
	if from, ok := parseProviderTime(o.ValidFrom); ok && from.After(now) {
		return false
	}
	if to, ok := parseProviderTime(o.ValidTo); ok && to.Before(now) {
		return false
	}
	return true
}

var providerTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseProviderTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return time.Time{}, false
	}
	for _, layout := range providerTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// officialID prefers the provider id and falls back to a slug derived from
// name and office, stable across repeated lookups of the same address.
func officialID(o cicero.Official) string {
	if o.ID > 0 {
		return strconv.FormatInt(o.ID, 10)
	}
	return slugify(o.Name() + " " + o.Office.Title)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
