package drafts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		subject string
		content string
		ok      bool
	}{
		{
			"canonical shape",
			"Subject: Hello\nMessage:\nBody text",
			"Hello", "Body text", true,
		},
		{
			"multiline body",
			"Subject: Fund transit now\nMessage:\nDear Senator,\n\nWe demand action.\n\nSincerely,\nA Concerned Constituent",
			"Fund transit now", "Dear Senator,\n\nWe demand action.\n\nSincerely,\nA Concerned Constituent", true,
		},
		{
			"leading chatter before markers",
			"Here is your draft:\n\nSubject: Hello\nMessage:\nBody",
			"Hello", "Body", true,
		},
		{
			"missing Message marker",
			"Subject: Hello\n\nBody text",
			"", "", false,
		},
		{
			"missing Subject marker",
			"Message:\nBody text",
			"", "", false,
		},
		{
			"empty subject",
			"Subject:\nMessage:\nBody",
			"", "", false,
		},
		{
			"empty body",
			"Subject: Hello\nMessage:\n   \n",
			"", "", false,
		},
		{
			"plain refusal text",
			"I apologize, but I cannot write that message.",
			"", "", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, content, ok := ParseDraft(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.content, content)
		})
	}
}

func TestLooksLikeRefusal(t *testing.T) {
	assert.True(t, LooksLikeRefusal("I apologize, but I can't help with that."))
	assert.True(t, LooksLikeRefusal("I cannot write messages of this nature."))
	assert.True(t, LooksLikeRefusal("As an AI, I should clarify a few things first."))
	assert.False(t, LooksLikeRefusal("Subject: Hello\nMessage:\nDear Senator, we demand action."))
}
