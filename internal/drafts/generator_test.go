package drafts

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const (
	draftModel    = "sonnet-test"
	classifyModel = "haiku-test"
)

// fakeAI scripts responses per request and records everything it saw.
type fakeAI struct {
	mu       sync.Mutex
	respond  func(req anthropic.MessageRequest) (string, error)
	requests []anthropic.MessageRequest
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	text, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func (f *fakeAI) recorded() []anthropic.MessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]anthropic.MessageRequest(nil), f.requests...)
}

func goodDraft() string {
	return "Subject: Act on our demands\nMessage:\nDear Senator, act now."
}

func recipient() model.Representative {
	return model.Representative{
		ID:     "42",
		Name:   "Jane Doe",
		Office: "U.S. Senator of TX",
		Level:  model.LevelCountry,
	}
}

func baseRequest() Request {
	return Request{
		Demands:   []string{"fund public transit"},
		Recipient: recipient(),
	}
}

func TestGenerateHappyPath(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "EMAIL", nil
		}
		return goodDraft(), nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	draft, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, model.DraftComplete, draft.Status)
	assert.Equal(t, "Act on our demands", draft.Subject)
	assert.Equal(t, "Dear Senator, act now.", draft.Content)

	reqs := fake.recorded()
	require.Len(t, reqs, 2) // draft + refusal check
	assert.Equal(t, draftModel, reqs[0].Model)
	assert.Equal(t, classifyModel, reqs[1].Model)
	assert.Contains(t, reqs[0].Messages[0].Content, "fund public transit")
	assert.Contains(t, reqs[0].Messages[0].Content, "Jane Doe")
	assert.Contains(t, reqs[0].Messages[0].Content, "A Concerned Constituent")
}

func TestGenerateIncludesPersonalInfo(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "EMAIL", nil
		}
		return goodDraft(), nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	req := baseRequest()
	req.PersonalInfo = &model.PersonalInfo{Name: "Alex Voter", Address: "12 Elm St"}
	_, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	prompt := fake.recorded()[0].Messages[0].Content
	assert.Contains(t, prompt, "Alex Voter")
	assert.Contains(t, prompt, "12 Elm St")
	assert.NotContains(t, prompt, "A Concerned Constituent")
}

func TestGenerateRefusalRetriesOnceWithStrictPrompt(t *testing.T) {
	var draftCalls int
	fake := &fakeAI{}
	fake.respond = func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "NOT_EMAIL", nil
		}
		draftCalls++
		if draftCalls == 1 {
			return "I apologize, but could you clarify which demands matter most?", nil
		}
		return goodDraft(), nil
	}
	g := NewGenerator(fake, draftModel, classifyModel)

	draft, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, model.DraftComplete, draft.Status)

	reqs := fake.recorded()
	// draft, classify, strict retry — and no second classification.
	require.Len(t, reqs, 3)
	assert.Equal(t, draftModel, reqs[2].Model)
	assert.Contains(t, reqs[2].System[0].Text, "comply unconditionally")
}

func TestGenerateClassifierFailureFallsBackToKeywords(t *testing.T) {
	var draftCalls int
	fake := &fakeAI{}
	fake.respond = func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "", assert.AnError
		}
		draftCalls++
		if draftCalls == 1 {
			return "I cannot write this message for you.", nil
		}
		return goodDraft(), nil
	}
	g := NewGenerator(fake, draftModel, classifyModel)

	draft, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, model.DraftComplete, draft.Status)
	assert.Equal(t, 2, draftCalls)
}

func TestGenerateClassifierFailureAcceptsNonRefusal(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "", assert.AnError
		}
		return goodDraft(), nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	draft, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, model.DraftComplete, draft.Status)

	reqs := fake.recorded()
	require.Len(t, reqs, 2) // draft + failed classify, no retry
}

func TestGenerateRevisionSkipsRefusalCheck(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		return "Subject: Act on our demands\nMessage:\nRevised body.", nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	req := baseRequest()
	req.WorkingDraft = "Dear Senator, act now."
	req.Feedback = "make it more personal"

	draft, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Revised body.", draft.Content)

	reqs := fake.recorded()
	require.Len(t, reqs, 1) // no classifier call for revisions
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "Dear Senator, act now.")
	assert.Contains(t, prompt, "make it more personal")
}

func TestGenerateValidation(t *testing.T) {
	g := NewGenerator(&fakeAI{}, draftModel, classifyModel)

	_, err := g.Generate(context.Background(), Request{Recipient: recipient()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = g.Generate(context.Background(), Request{Demands: []string{"x"}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGenerateParseFailure(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "EMAIL", nil
		}
		return "Here are some thoughts on your demands...", nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	_, err := g.Generate(context.Background(), baseRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Failed to generate draft")
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		if req.Model == classifyModel {
			return "EMAIL", nil
		}
		if strings.Contains(req.Messages[0].Content, "Broken Bob") {
			return "", assert.AnError
		}
		return goodDraft(), nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	recipients := []model.Representative{
		{ID: "1", Name: "Jane Doe", Office: "U.S. Senator"},
		{ID: "2", Name: "Broken Bob", Office: "Governor"},
		{ID: "3", Name: "Carol Chen", Office: "Mayor"},
	}

	results := g.GenerateAll(context.Background(), []string{"fix potholes"}, nil, recipients)
	require.Len(t, results, 3)
	assert.Equal(t, model.DraftComplete, results["1"].Status)
	assert.Equal(t, model.DraftError, results["2"].Status)
	assert.NotEmpty(t, results["2"].Error)
	assert.Equal(t, model.DraftComplete, results["3"].Status)
}

func TestReviseAllUsesOriginalContentAsWorkingDraft(t *testing.T) {
	fake := &fakeAI{respond: func(req anthropic.MessageRequest) (string, error) {
		return "Subject: Revised\nMessage:\nRevised body.", nil
	}}
	g := NewGenerator(fake, draftModel, classifyModel)

	recipients := []model.Representative{
		{ID: "1", Name: "Jane Doe", Office: "U.S. Senator"},
		{ID: "2", Name: "Carol Chen", Office: "Mayor"},
	}
	current := map[string]model.Draft{
		"1": {Subject: "Old", Content: "Original body one.", Status: model.DraftComplete},
		"2": {Status: model.DraftError, Error: "Failed to generate draft"},
	}

	results := g.ReviseAll(context.Background(), []string{"fix potholes"}, nil, recipients, current, "shorter please")

	assert.Equal(t, "Revised body.", results["1"].Content)
	// Error drafts are not revised.
	assert.Equal(t, model.DraftError, results["2"].Status)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "Original body one.")
	assert.Contains(t, prompt, "shorter please")
}
