package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "Subject: Hello\n"},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "Message:\nBody"},
		},
	}
	assert.Equal(t, "Subject: Hello\nMessage:\nBody", resp.Text())
}

func TestMessageResponseText_Empty(t *testing.T) {
	assert.Equal(t, "", (&MessageResponse{}).Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("You write constituent emails.")
	assert.Len(t, blocks, 1)
	assert.Equal(t, "You write constituent emails.", blocks[0].Text)
	assert.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}

func TestToSDKMessagesRoles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
