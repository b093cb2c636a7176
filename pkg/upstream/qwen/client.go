package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/api"
)

// Config carries the endpoint and timing settings for a Client.
type Config struct {
	// ConversationURL is the domestic-site streaming conversation endpoint.
	ConversationURL string

	// PrewarmURL is the domestic-site record listing endpoint hit before a
	// conversation to refresh server-side session state.
	PrewarmURL string

	// CompletionsURL is the alternate-site async job submission endpoint.
	CompletionsURL string

	// TaskStatusURL is the alternate-site job status prefix; the task ID is
	// appended.
	TaskStatusURL string

	// ConnectTimeout bounds non-streaming calls. Zero means 60s.
	ConnectTimeout time.Duration

	// PollInterval is the delay between job status queries. Zero means 3s.
	PollInterval time.Duration

	// PollMaxAttempts bounds status queries per job. Zero means 120.
	PollMaxAttempts int
}

// Client performs HTTP requests against the Tongyi/Qwen web backends.
// It is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	conversationURL string
	prewarmURL      string
	completionsURL  string
	taskStatusURL   string
	pollInterval    time.Duration
	pollMaxAttempts int
}

// New creates a Client from the given configuration, filling in defaults
// for unset timing fields.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 60 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollMaxAttempts == 0 {
		cfg.PollMaxAttempts = 120
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.ConnectTimeout,
		},
		conversationURL: cfg.ConversationURL,
		prewarmURL:      cfg.PrewarmURL,
		completionsURL:  cfg.CompletionsURL,
		taskStatusURL:   cfg.TaskStatusURL,
		pollInterval:    cfg.PollInterval,
		pollMaxAttempts: cfg.PollMaxAttempts,
	}
}

// post builds a JSON POST request with the given header set.
func post(ctx context.Context, url string, headers http.Header, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	req.Header = headers.Clone()
	return req, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
