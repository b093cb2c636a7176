package qwen

import (
	"strings"

	"github.com/google/uuid"

	"github.com/qwenrelay/qwenrelay/pkg/api"
)

// Default inputs for requests that arrive without usable text. The
// backend rejects empty conversations, so a minimal greeting or prompt is
// substituted instead of failing the request.
const (
	defaultGreeting   = "你好"
	defaultTaskPrompt = "一只猫"
)

// Backend model identifiers for async generation jobs. The client-facing
// model name only selects the job kind; the submission always names one
// of these.
const (
	imageTaskModel = "wanx-v1"
	videoTaskModel = "animate-v1"
)

// NewConversationPayload translates an inbound chat request into the
// domestic-site conversation body. Only string message contents
// participate; multimodal part arrays are dropped. An empty message list
// falls back to the request prompt, then to the default greeting.
func NewConversationPayload(req *api.ChatCompletionRequest) *ConversationPayload {
	messages := req.Messages
	if len(messages) == 0 {
		prompt := req.Prompt
		if prompt == "" {
			prompt = defaultGreeting
		}
		messages = []api.Message{{Role: "user", Content: prompt}}
	}

	contents := make([]PayloadContent, 0, len(messages))
	for _, msg := range messages {
		text, ok := msg.Content.(string)
		if !ok {
			continue
		}
		contents = append(contents, PayloadContent{
			Role:        msg.Role,
			Content:     text,
			ContentType: "text",
		})
	}

	return &ConversationPayload{
		Action:      "next",
		Contents:    contents,
		Model:       req.Model,
		RequestID:   uuid.New().String(),
		SessionType: "text_chat",
		UserAction:  "new_top",
	}
}

// NewTaskPayload translates an inbound chat request into an async job
// submission. It returns the payload and the backend model it selected.
// The prompt field drives generation; absent prompts get a default so the
// job is still well formed.
func NewTaskPayload(req *api.ChatCompletionRequest) (*TaskPayload, string) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = defaultTaskPrompt
	}

	taskModel := videoTaskModel
	msgType := "t2v"
	if strings.Contains(req.Model, "wanx") {
		taskModel = imageTaskModel
		msgType = "t2i"
	}

	return &TaskPayload{
		Action: "next",
		Contents: []PayloadContent{{
			Role:        "user",
			Content:     prompt,
			ContentType: "text",
		}},
		MsgType:   msgType,
		Mode:      "chat",
		Model:     taskModel,
		RequestID: uuid.New().String(),
	}, taskModel
}
