package api

import "time"

// ChatCompletionRequest is the inbound request body for
// POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages,omitempty"`

	// Prompt is a free-text fallback used when Messages is empty.
	Prompt string `json:"prompt,omitempty"`

	// Stream is accepted for wire compatibility. Text and vision requests
	// always stream; image and video requests always return a single
	// completion object.
	Stream bool `json:"stream,omitempty"`
}

// Message is a single entry of the conversation.
// Content is usually a string; multimodal part arrays are accepted on the
// wire but only string content participates in payload translation.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Delta carries the incremental part of a streaming chunk. Exactly one of
// Role or Content is set on role/content chunks; both are empty on the
// finish chunk, which serializes as an empty object.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is the single choice of a streaming chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE event of a streaming response.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// CompletionMessage is the assistant message of a non-streaming completion.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionChoice is the single choice of a non-streaming completion.
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// Usage reports token counts. The gateway does not meter tokens, so all
// fields are always zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletion is a complete non-streaming response, used by the
// image/video long-poll path.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

// Model describes one entry of the GET /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList wraps the model listing in the OpenAI list envelope.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// finishReasonStop is the only finish reason the gateway emits.
var finishReasonStop = "stop"

// NewRoleChunk builds the role-announcement chunk sent once before the
// first content chunk of a stream.
func NewRoleChunk(id, model string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Delta{Role: "assistant"},
		}},
	}
}

// NewContentChunk builds a chunk carrying newly generated text.
func NewContentChunk(id, model, delta string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Delta{Content: delta},
		}},
	}
}

// NewFinishChunk builds the terminal chunk with an empty delta and
// finish_reason "stop". It precedes the [DONE] sentinel on every stream.
func NewFinishChunk(id, model string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        Delta{},
			FinishReason: &finishReasonStop,
		}},
	}
}

// IsFinish reports whether the chunk carries a finish_reason, i.e. whether
// it terminates the stream from the client's perspective.
func (c *ChatCompletionChunk) IsFinish() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != nil
}

// NewChatCompletion builds a complete non-streaming response with the
// given assistant content and zeroed usage.
func NewChatCompletion(id, model, content string) *ChatCompletion {
	return &ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []CompletionChoice{{
			Index: 0,
			Message: CompletionMessage{
				Role:    "assistant",
				Content: content,
			},
			FinishReason: "stop",
		}},
	}
}
