// Package selector asks a model to pick the representatives relevant to a
// user's demands, treating the model as an untrusted oracle whose output is
// validated before use.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/anthropic"
)

// Selector runs "pick for me" representative selection.
type Selector struct {
	ai        anthropic.Client
	modelName string
}

// New creates a Selector using the given (haiku-class) model.
func New(ai anthropic.Client, modelName string) *Selector {
	return &Selector{ai: ai, modelName: modelName}
}

// Result is the outcome of one selection request.
type Result struct {
	// Indices into the candidate list, ordered by relevance.
	Indices []int
	// Failed is set when the model's output could not be parsed; Indices
	// then holds only forced campaign preselections.
	Failed bool
}

// Select returns the subset of candidates relevant to the demands.
// Candidates must be pre-filtered to representatives with at least one
// contact. Preselected campaign representative IDs are always unioned into
// the result regardless of the model's answer. Select never returns a
// parse failure as an error; it degrades to an empty selection instead.
func (s *Selector) Select(ctx context.Context, demands []string, candidates []model.Representative, preselectedIDs []string) (Result, error) {
	if len(demands) == 0 {
		return Result{}, apperr.New(apperr.KindValidation, "selector: demands are required")
	}
	if len(candidates) == 0 {
		return Result{Indices: []int{}}, nil
	}

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.modelName,
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(demands, candidates)},
		},
	})
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUpstream, err, "selector: model call")
	}
	resp.Usage.LogUsage(s.modelName, "select")

	indices, ok := ParseSelection(resp.Text(), len(candidates))
	result := Result{Indices: indices, Failed: !ok}
	if !ok {
		zap.L().Warn("selection response unparseable",
			zap.Int("candidates", len(candidates)),
		)
	}

	result.Indices = unionPreselected(result.Indices, candidates, preselectedIDs)
	return result, nil
}

func buildPrompt(demands []string, candidates []model.Representative) string {
	var b strings.Builder

	b.WriteString("A constituent has the following demands:\n\n")
	for i, d := range demands {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}

	b.WriteString("\nThese elected officials represent them:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s, %s (%s)\n", i, c.Name, c.Office, c.Level)
	}

	b.WriteString("\nReturn a JSON array of the indices of the officials with " +
		"authority or influence over these demands, ordered from most to least " +
		"relevant. Return only the array, e.g. [2, 0, 5]. Return [] if none apply.")

	return b.String()
}

// arrayPattern matches the first bracket-delimited substring in a response.
var arrayPattern = regexp.MustCompile(`\[[^\[\]]*\]`)

// ParseSelection extracts validated candidate indices from a model response.
// Entries that are not integers or fall outside [0, n) are dropped silently.
// The second return is false when no parseable array is present.
func ParseSelection(text string, n int) ([]int, bool) {
	match := arrayPattern.FindString(text)
	if match == "" {
		return []int{}, false
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return []int{}, false
	}

	indices := make([]int, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for _, item := range raw {
		// Decoded element-wise so one stray string or float drops only
		// itself, not the whole selection.
		var num json.Number
		if err := json.Unmarshal(item, &num); err != nil {
			continue
		}
		v, err := num.Int64()
		if err != nil {
			continue
		}
		idx := int(v)
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}

	return indices, true
}

// unionPreselected forces campaign-preselected representatives into the
// result set, preserving the model's relevance ordering for the rest.
func unionPreselected(indices []int, candidates []model.Representative, preselectedIDs []string) []int {
	if len(preselectedIDs) == 0 {
		return indices
	}

	preselected := make(map[string]bool, len(preselectedIDs))
	for _, id := range preselectedIDs {
		preselected[id] = true
	}

	present := make(map[int]bool, len(indices))
	for _, idx := range indices {
		present[idx] = true
	}

	for i, c := range candidates {
		if preselected[c.ID] && !present[i] {
			indices = append(indices, i)
		}
	}
	return indices
}
