package qwen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/classify"
	"github.com/qwenrelay/qwenrelay/pkg/debug"
	"github.com/qwenrelay/qwenrelay/pkg/observability"
)

// fallbackContent is returned when a job succeeds but the result carries
// no artifact URLs.
const fallbackContent = "生成完成，但未能获取链接。"

// RunTask submits an async image or video generation job to the alternate
// site, polls its status until it resolves, and returns the artifact URLs
// as a single non-streaming completion.
//
// The submission response is itself an SSE stream; only the first event
// carrying a task ID matters. Status is then polled at the configured
// interval up to the configured attempt budget. Transient non-200 status
// responses and unrecognized states keep the poll going; only succeeded,
// failed, and budget exhaustion resolve the job.
func (c *Client) RunTask(ctx context.Context, acct accounts.IntlAccount, req *api.ChatCompletionRequest) (*api.ChatCompletion, error) {
	payload, taskModel := NewTaskPayload(req)
	kind := classify.Classify(req.Model)

	taskID, err := c.submitTask(ctx, acct, payload)
	if err != nil {
		return nil, err
	}

	slog.Info("generation job accepted",
		"task_id", taskID,
		"task_model", taskModel,
		"kind", string(kind),
	)

	status, err := c.pollTask(ctx, acct, taskID)
	if err != nil {
		return nil, err
	}

	content := formatMediaContent(status.Result, kind)
	return api.NewChatCompletion(api.NewChatID(), req.Model, content), nil
}

// submitTask posts the job and scans the submission stream for the first
// event that names a task ID.
func (c *Client) submitTask(ctx context.Context, acct accounts.IntlAccount, payload *TaskPayload) (string, error) {
	req, err := post(ctx, c.completionsURL, intlHeaders(acct), payload)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues("intl", "submit", "error").Inc()
		return "", MapNetworkError(err)
	}
	defer resp.Body.Close()
	observability.UpstreamLatency.WithLabelValues("intl", "submit").Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamRequestsTotal.WithLabelValues("intl", "submit", "error").Inc()
		return "", MapHTTPError(resp)
	}
	observability.UpstreamRequestsTotal.WithLabelValues("intl", "submit", "ok").Inc()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if raw == "" || strings.Contains(raw, "[DONE]") {
			continue
		}

		var event conversationEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		if len(event.TaskIDs) > 0 {
			return event.TaskIDs[0], nil
		}
	}

	return "", api.NewUpstreamError(fmt.Sprintf("job submission for %s returned no task ID", payload.Model))
}

// pollTask queries job status until it resolves or the attempt budget
// runs out. Each attempt waits the poll interval first; jobs never finish
// instantly.
func (c *Client) pollTask(ctx context.Context, acct accounts.IntlAccount, taskID string) (*taskStatus, error) {
	url := c.taskStatusURL + taskID

	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
		}
		req.Header = intlHeaders(acct).Clone()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			observability.TaskPollsTotal.WithLabelValues("error").Inc()
			return nil, MapNetworkError(err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			observability.TaskPollsTotal.WithLabelValues("retry").Inc()
			continue
		}

		var status taskStatus
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			observability.TaskPollsTotal.WithLabelValues("retry").Inc()
			continue
		}

		debug.Log("tasks", "job status", "task_id", taskID, "attempt", attempt, "status", status.Status)

		switch status.Status {
		case "succeeded":
			observability.TaskPollsTotal.WithLabelValues("succeeded").Inc()
			return &status, nil
		case "failed":
			observability.TaskPollsTotal.WithLabelValues("failed").Inc()
			return nil, api.NewTaskFailedError(failureReason(status.Result))
		default:
			observability.TaskPollsTotal.WithLabelValues("pending").Inc()
		}
	}

	observability.TaskPollsTotal.WithLabelValues("timeout").Inc()
	return nil, api.NewTaskTimeoutError(fmt.Sprintf("job %s did not resolve within %d polls", taskID, c.pollMaxAttempts))
}

// failureReason extracts a human-readable reason from a failed job's raw
// result, which the backend reports as a bare string.
func failureReason(result json.RawMessage) string {
	var reason string
	if err := json.Unmarshal(result, &reason); err == nil && reason != "" {
		return reason
	}
	if len(result) > 0 {
		return debug.Truncate(string(result), 200)
	}
	return "未知错误"
}

// formatMediaContent turns a succeeded job's artifact URLs into the
// assistant text returned to the client. Images use an inline image
// reference per line; videos use a labeled link per line.
func formatMediaContent(result json.RawMessage, kind classify.Kind) string {
	var parsed taskResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return fallbackContent
	}

	items := parsed.Videos
	if kind == classify.KindImage {
		items = parsed.Images
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		if kind == classify.KindImage {
			lines = append(lines, fmt.Sprintf("!image(%s)", item.URL))
		} else {
			lines = append(lines, "视频链接: "+item.URL)
		}
	}
	if len(lines) == 0 {
		return fallbackContent
	}
	return strings.Join(lines, "\n")
}
