package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeAI struct {
	text  string
	err   error
	calls int
	last  anthropic.MessageRequest
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func TestCheckAllows(t *testing.T) {
	fake := &fakeAI{text: "ALLOW"}
	m := NewModerator(fake, "haiku-test")

	err := m.Check(context.Background(), "Fix the Potholes", "Our streets are falling apart.",
		[]string{"repave Main St"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Contains(t, fake.last.Messages[0].Content, "repave Main St")
}

func TestCheckBlocks(t *testing.T) {
	fake := &fakeAI{text: "BLOCK"}
	m := NewModerator(fake, "haiku-test")

	err := m.Check(context.Background(), "t", "m", nil)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
}

func TestCheckClassifierDownFallsBackToKeywords(t *testing.T) {
	fake := &fakeAI{err: errors.New("overloaded")}
	m := NewModerator(fake, "haiku-test")

	// Ordinary advocacy passes the keyword screen.
	err := m.Check(context.Background(), "Fix the Potholes",
		"The council must act now.", nil)
	require.NoError(t, err)

	// Explicit threats do not.
	err = m.Check(context.Background(), "t", "I will kill you if this passes.", nil)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
}

func TestCheckAcceptsStrongLanguage(t *testing.T) {
	fake := &fakeAI{text: "ALLOW"}
	m := NewModerator(fake, "haiku-test")

	err := m.Check(context.Background(), "Enough is enough",
		"This policy is a disgrace and the mayor should be ashamed.", nil)
	require.NoError(t, err)
}
