// Package moderation screens user-submitted campaign content before it is
// persisted and becomes visible to other users.
package moderation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/pkg/anthropic"
)

const classifySystem = `You review short civic-advocacy campaign submissions for a public platform.
Campaigns advocate for policy change by contacting elected officials. Strong language,
anger at institutions, and blunt demands are all acceptable.

Block a submission only if it contains threats of violence, targeted harassment of a
private individual, doxxing, slurs, or spam/commercial content.

Answer with exactly one word: ALLOW or BLOCK.`

// blockKeywords is the fallback screen used when the classifier is
// unreachable. It only catches the unambiguous cases.
var blockKeywords = []string{
	"kill you",
	"kill him",
	"kill her",
	"kill them",
	"shoot up",
	"bomb threat",
	"i will hurt",
	"home address is",
}

// RejectedError reports content that failed moderation.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "moderation: content rejected: " + e.Reason
}

type ai interface {
	CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

// Moderator gates campaign submissions.
type Moderator struct {
	ai        ai
	modelName string
}

func NewModerator(client ai, modelName string) *Moderator {
	return &Moderator{ai: client, modelName: modelName}
}

// Check returns a RejectedError when the given campaign content should not
// be published. A classifier outage degrades to the keyword screen rather
// than blocking every submission.
func (m *Moderator) Check(ctx context.Context, title, message string, demands []string) error {
	content := title + "\n" + message
	if len(demands) > 0 {
		content += "\n" + strings.Join(demands, "\n")
	}

	resp, err := m.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.modelName,
		MaxTokens: 8,
		System:    []anthropic.SystemBlock{{Text: classifySystem}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Submission:\n%s", content),
		}},
	})
	if err != nil {
		zap.L().Warn("moderation classifier unavailable, using keyword screen",
			zap.Error(err))
		return keywordScreen(content)
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Text()))
	if strings.Contains(verdict, "BLOCK") {
		return &RejectedError{Reason: "flagged by content review"}
	}
	return nil
}

func keywordScreen(content string) error {
	lower := strings.ToLower(content)
	for _, kw := range blockKeywords {
		if strings.Contains(lower, kw) {
			return &RejectedError{Reason: "flagged by content review"}
		}
	}
	return nil
}
