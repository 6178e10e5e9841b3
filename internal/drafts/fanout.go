package drafts

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/outrage-civic/outrage-api/internal/model"
)

// maxConcurrentDrafts bounds the per-session fan-out so one user cannot
// saturate the provider connection pool.
const maxConcurrentDrafts = 4

// GenerateAll generates one draft per recipient concurrently and collects
// the results keyed by representative ID. Failures are isolated per unit:
// one recipient's error never blocks or rolls back the others, and there is
// no ordering guarantee between completions.
func (g *Generator) GenerateAll(ctx context.Context, demands []string, info *model.PersonalInfo, recipients []model.Representative) map[string]model.Draft {
	results := make(map[string]model.Draft, len(recipients))
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentDrafts)

	for _, recipient := range recipients {
		eg.Go(func() error {
			draft := g.generateOne(ctx, Request{
				Demands:      demands,
				PersonalInfo: info,
				Recipient:    recipient,
			})
			mu.Lock()
			results[recipient.ID] = draft
			mu.Unlock()
			return nil
		})
	}

	_ = eg.Wait() // per-unit errors are captured in the drafts themselves
	return results
}

// ReviseAll revises every complete draft using its own current content as
// the working draft and a single shared feedback string. Drafts that are
// not complete are returned untouched. Callers clear the feedback once
// revisions are dispatched, not once they resolve.
func (g *Generator) ReviseAll(ctx context.Context, demands []string, info *model.PersonalInfo, recipients []model.Representative, current map[string]model.Draft, feedback string) map[string]model.Draft {
	results := make(map[string]model.Draft, len(current))
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentDrafts)

	for _, recipient := range recipients {
		existing, ok := current[recipient.ID]
		if !ok || existing.Status != model.DraftComplete {
			results[recipient.ID] = existing
			continue
		}

		eg.Go(func() error {
			draft := g.generateOne(ctx, Request{
				Demands:      demands,
				PersonalInfo: info,
				Recipient:    recipient,
				WorkingDraft: existing.Content,
				Feedback:     feedback,
			})
			mu.Lock()
			results[recipient.ID] = draft
			mu.Unlock()
			return nil
		})
	}

	_ = eg.Wait()
	return results
}

func (g *Generator) generateOne(ctx context.Context, req Request) model.Draft {
	draft, err := g.Generate(ctx, req)
	if err != nil {
		return model.Draft{
			Status: model.DraftError,
			Error:  err.Error(),
		}
	}
	return *draft
}
