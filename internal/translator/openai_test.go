package translator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionRequestDecoding(t *testing.T) {
	payload := `{
		"model": "githubhunt-agent",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "find rust web frameworks"}
		],
		"stream": true,
		"temperature": 0.7,
		"max_tokens": 512,
		"tool_choice": "auto",
		"some_future_field": {"nested": true}
	}`

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, "githubhunt-agent", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "find rust web frameworks", req.Messages[1].Content.Text)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 512, *req.MaxTokens)
}

func TestMessageContentUnmarshal(t *testing.T) {
	var text MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"hello"`), &text))
	assert.Equal(t, "hello", text.Text)
	assert.False(t, text.Structured)

	var parts MessageContent
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"http://x"}}]`), &parts))
	assert.True(t, parts.Structured)

	var bad MessageContent
	err := json.Unmarshal([]byte(`42`), &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content must be a string or an array")
}

func TestExtractQuery(t *testing.T) {
	msg := func(role, content string) ChatMessage {
		return ChatMessage{Role: role, Content: MessageContent{Text: content}}
	}

	t.Run("last user message wins", func(t *testing.T) {
		query, err := ExtractQuery([]ChatMessage{
			msg("system", "you are a scout"),
			msg("user", "first question"),
			msg("assistant", "first answer"),
			msg("user", "second question"),
		})
		require.NoError(t, err)
		assert.Equal(t, "second question", query)
	})

	t.Run("text is verbatim", func(t *testing.T) {
		query, err := ExtractQuery([]ChatMessage{msg("user", "  spaced  out  ")})
		require.NoError(t, err)
		assert.Equal(t, "  spaced  out  ", query)
	})

	t.Run("no user message", func(t *testing.T) {
		_, err := ExtractQuery([]ChatMessage{
			msg("system", "setup"),
			msg("assistant", "hello"),
		})
		require.ErrorIs(t, err, ErrNoUserMessage)
	})

	t.Run("empty conversation", func(t *testing.T) {
		_, err := ExtractQuery(nil)
		require.ErrorIs(t, err, ErrNoUserMessage)
	})

	t.Run("multimodal content rejected", func(t *testing.T) {
		_, err := ExtractQuery([]ChatMessage{
			{Role: "user", Content: MessageContent{Structured: true}},
		})
		require.ErrorIs(t, err, ErrMultimodalContent)
	})

	t.Run("earlier multimodal turn is ignored", func(t *testing.T) {
		query, err := ExtractQuery([]ChatMessage{
			{Role: "user", Content: MessageContent{Structured: true}},
			msg("assistant", "cannot see images"),
			msg("user", "plain text instead"),
		})
		require.NoError(t, err)
		assert.Equal(t, "plain text instead", query)
	})
}

func TestNewResponseID(t *testing.T) {
	id := NewResponseID()
	assert.True(t, strings.HasPrefix(id, "chatcmpl-"))
	assert.NotEqual(t, id, NewResponseID())
}

func TestCompletionShape(t *testing.T) {
	resp := NewCompletion("chatcmpl-1", 1700000000, "githubhunt-agent", "the answer")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"object":"chat.completion"`)
	assert.Contains(t, body, `"finish_reason":"stop"`)
	assert.Contains(t, body, `"role":"assistant"`)
	assert.Contains(t, body, `"prompt_tokens":0`)
	assert.Contains(t, body, `"total_tokens":0`)
}

func TestChunkShapes(t *testing.T) {
	content, err := json.Marshal(NewContentChunk("chatcmpl-1", 1700000000, "m", "frag"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"object":"chat.completion.chunk"`)
	assert.Contains(t, string(content), `"delta":{"content":"frag"}`)
	assert.Contains(t, string(content), `"finish_reason":null`)

	stop, err := json.Marshal(NewStopChunk("chatcmpl-1", 1700000000, "m"))
	require.NoError(t, err)
	assert.Contains(t, string(stop), `"delta":{}`)
	assert.Contains(t, string(stop), `"finish_reason":"stop"`)
}

func TestStreamErrorShape(t *testing.T) {
	data, err := json.Marshal(NewStreamError("model unreachable"))
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"message":"model unreachable"`)
	assert.Contains(t, body, `"type":"internal_error"`)
	assert.Contains(t, body, `"code":"agent_execution_failed"`)
}
