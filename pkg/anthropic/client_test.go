package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponseText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "first"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: " second"},
	}}
	assert.Equal(t, "first second", resp.Text())

	empty := &MessageResponse{}
	assert.Empty(t, empty.Text())
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}

	assert.InDelta(t, 0.80+2.00, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestToSDKMessagesRoles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
