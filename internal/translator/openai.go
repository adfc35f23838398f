// Package translator defines the OpenAI-compatible wire types served by the
// gateway and the policy that turns a chat message list into a single agent
// query.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoUserMessage indicates the conversation contained no user message.
	ErrNoUserMessage = errors.New("no user message found in conversation")

	// ErrMultimodalContent indicates the selected message carried structured
	// (multimodal) content, which the agent does not accept.
	ErrMultimodalContent = errors.New("multimodal input (text+image) is not supported yet, please use text-only queries")

	errInvalidContent = errors.New("invalid message content")
)

// MessageContent is either plain text or a structured multimodal payload.
// Structured content is accepted at parse time and only rejected if the
// message is actually selected as the agent query.
type MessageContent struct {
	Text       string
	Structured bool
}

// UnmarshalJSON accepts a JSON string or an array of content parts. The parts
// themselves are not interpreted; their presence marks the content as
// structured.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Structured = false
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err == nil {
		c.Text = ""
		c.Structured = true
		return nil
	}

	return fmt.Errorf("%w: content must be a string or an array of content parts", errInvalidContent)
}

// MarshalJSON round-trips plain text; structured content is rendered as an
// empty part list since the gateway never echoes multimodal payloads.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Structured {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Text)
}

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ChatCompletionRequest models the POST /v1/chat/completions payload.
// Generation parameters are parsed but not interpreted by the gateway, and
// unrecognised fields are ignored so newer clients keep working.
type ChatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	N                *int          `json:"n,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

// ExtractQuery reduces a message list to the agent query.
//
// Policy: keep only user messages, in order; take the last one; reject
// structured content; return the text verbatim. Earlier user turns and all
// assistant/system messages are deliberately ignored; conversation history
// is not reassembled.
func ExtractQuery(messages []ChatMessage) (string, error) {
	var last *ChatMessage
	for i := range messages {
		if messages[i].Role == "user" {
			last = &messages[i]
		}
	}

	if last == nil {
		return "", ErrNoUserMessage
	}

	if last.Content.Structured {
		return "", ErrMultimodalContent
	}

	return last.Content.Text, nil
}

// NewResponseID produces a chat completion id. One id is issued per response
// and reused across every chunk of a stream.
func NewResponseID() string {
	return "chatcmpl-" + uuid.NewString()
}

// Usage mirrors the OpenAI token usage block. The agent exposes no token
// accounting, so all counts are reported as zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionMessage is the assistant message in a non-streaming response.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionChoice is a single choice in a non-streaming response.
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatCompletionResponse models the non-streaming completion payload.
type ChatCompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

// NewCompletion builds the aggregated (non-streaming) response.
func NewCompletion(id string, created int64, model, content string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []CompletionChoice{
			{
				Index: 0,
				Message: CompletionMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
	}
}

// ChunkDelta carries the incremental content of a stream chunk. The terminal
// chunk has an empty delta.
type ChunkDelta struct {
	Content string `json:"content,omitempty"`
}

// ChunkChoice is a single choice in a stream chunk. FinishReason is null for
// content chunks and "stop" on the terminal chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk models one SSE frame payload of a streamed response.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// NewContentChunk builds a chunk carrying one fragment of agent output.
func NewContentChunk(id string, created int64, model, content string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{
			{
				Index:        0,
				Delta:        ChunkDelta{Content: content},
				FinishReason: nil,
			},
		},
	}
}

// NewStopChunk builds the terminal chunk that closes a successful stream.
func NewStopChunk(id string, created int64, model string) ChatCompletionChunk {
	stop := "stop"
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{
			{
				Index:        0,
				Delta:        ChunkDelta{},
				FinishReason: &stop,
			},
		},
	}
}

// StreamError is the in-band error event emitted when the agent fails after
// streaming has begun. No [DONE] sentinel follows it.
type StreamError struct {
	Error StreamErrorDetail `json:"error"`
}

// StreamErrorDetail carries the failure description.
type StreamErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewStreamError builds the in-band error event for a failed stream.
func NewStreamError(message string) StreamError {
	return StreamError{
		Error: StreamErrorDetail{
			Message: message,
			Type:    "internal_error",
			Code:    "agent_execution_failed",
		},
	}
}

// ModelInfo describes one entry of GET /v1/models.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the GET /v1/models response envelope.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// NewModelInfo builds a model descriptor with the given identity.
func NewModelInfo(id string, created int64, ownedBy string) ModelInfo {
	return ModelInfo{
		ID:      id,
		Object:  "model",
		Created: created,
		OwnedBy: ownedBy,
	}
}
