package qwen

import "encoding/json"

// PayloadContent is one entry of an outbound conversation payload.
type PayloadContent struct {
	Role        string `json:"role,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// FeatureConfig toggles backend conversation features. Both stay off so
// responses contain plain assistant text only.
type FeatureConfig struct {
	SearchEnabled   bool `json:"search_enabled"`
	ThinkingEnabled bool `json:"thinking_enabled"`
}

// ConversationPayload is the domestic-site request body for a streaming
// conversation turn.
type ConversationPayload struct {
	Action        string           `json:"action"`
	Contents      []PayloadContent `json:"contents"`
	Model         string           `json:"model"`
	ParentMsgID   string           `json:"parentMsgId"`
	RequestID     string           `json:"requestId"`
	SessionID     string           `json:"sessionId"`
	SessionType   string           `json:"sessionType"`
	UserAction    string           `json:"userAction"`
	FeatureConfig FeatureConfig    `json:"feature_config"`
}

// TaskPayload is the alternate-site request body that submits an async
// image or video generation job.
type TaskPayload struct {
	Action      string           `json:"action"`
	Contents    []PayloadContent `json:"contents"`
	MsgType     string           `json:"msg_type"`
	Mode        string           `json:"mode"`
	Model       string           `json:"model"`
	ParentMsgID string           `json:"parentMsgId"`
	RequestID   string           `json:"requestId"`
}

// eventContent is one content block of a backend SSE event. Content is a
// pointer so that an explicit null can be told apart from an empty string.
type eventContent struct {
	Content     *string `json:"content"`
	ContentType string  `json:"contentType"`
	Role        string  `json:"role"`
}

// conversationEvent is the decoded body of one backend SSE data line.
// Conversation streams populate Contents with cumulative snapshots; job
// submission streams populate TaskIDs once the job is accepted.
type conversationEvent struct {
	Contents []eventContent `json:"contents"`
	TaskIDs  []string       `json:"taskIds"`
}

// taskStatus is the decoded body of a job status response. Result is kept
// raw because its shape depends on the outcome: a media-list object on
// success, a bare reason string on failure.
type taskStatus struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// taskResult is the success shape of taskStatus.Result.
type taskResult struct {
	Images []mediaItem `json:"images"`
	Videos []mediaItem `json:"videos"`
}

// mediaItem is a single generated artifact.
type mediaItem struct {
	URL string `json:"url"`
}
