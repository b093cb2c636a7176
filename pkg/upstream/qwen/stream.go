package qwen

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/debug"
	"github.com/qwenrelay/qwenrelay/pkg/observability"
)

// Stream opens a conversation against the domestic site and returns a
// channel of OpenAI-format chunks. The backend emits cumulative snapshots
// of the assistant text; the translator computes the increment between
// consecutive snapshots and emits only that.
//
// The channel carries at most one role chunk, any number of content
// chunks, and always ends with a finish chunk before being closed, even
// when the upstream connection drops mid-stream. Lifecycle control is by
// context cancellation; no fixed timeout applies to the streaming call.
func (c *Client) Stream(ctx context.Context, acct accounts.CNAccount, payload *ConversationPayload, model string) (<-chan api.ChatCompletionChunk, error) {
	req, err := post(ctx, c.conversationURL, cnHeaders(acct), payload)
	if err != nil {
		return nil, err
	}
	debug.Log("upstream", "opening conversation stream",
		"url", c.conversationURL, "account", acct.ID, "model", model)

	// A client without timeout; a conversation can legitimately outlast
	// any fixed bound.
	streamClient := &http.Client{Transport: c.httpClient.Transport}

	start := time.Now()
	resp, err := streamClient.Do(req)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues("cn", "conversation", "error").Inc()
		return nil, MapNetworkError(err)
	}
	observability.UpstreamLatency.WithLabelValues("cn", "conversation").Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamRequestsTotal.WithLabelValues("cn", "conversation", "error").Inc()
		defer resp.Body.Close()
		return nil, MapHTTPError(resp)
	}
	observability.UpstreamRequestsTotal.WithLabelValues("cn", "conversation", "ok").Inc()

	ch := make(chan api.ChatCompletionChunk, 16)

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		s := newStreamTranslator(model)
		s.run(ctx, resp.Body, ch)
	}()

	return ch, nil
}

// streamTranslator converts one backend snapshot stream into incremental
// chunks. All state is local to a single invocation; concurrent streams
// never share a translator.
type streamTranslator struct {
	chatID string
	model  string

	// full is the complete assistant text observed so far.
	full string

	// first tracks whether the role chunk is still owed.
	first bool
}

func newStreamTranslator(model string) *streamTranslator {
	return &streamTranslator{
		chatID: api.NewChatID(),
		model:  model,
		first:  true,
	}
}

// run reads SSE lines from body until EOF or context cancellation and
// sends translated chunks on ch. The finish chunk is sent unconditionally
// before returning.
func (s *streamTranslator) run(ctx context.Context, body io.Reader, ch chan<- api.ChatCompletionChunk) {
	scanner := bufio.NewScanner(body)
	// Snapshots grow with the full response, so a single SSE line can far
	// exceed the default token limit.
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		for _, chunk := range s.translateLine(scanner.Text()) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("upstream stream read error, finishing early",
			"chat_id", s.chatID,
			"error", err.Error(),
		)
	}

	// The terminal chunk is owed on every path so clients always see a
	// well-formed end of stream.
	select {
	case ch <- api.NewFinishChunk(s.chatID, s.model):
	case <-ctx.Done():
	}
}

// translateLine processes a single SSE line and returns the chunks it
// produces: nothing for non-data lines and no-op events, a role chunk
// plus content chunk for the first increment, a content chunk afterwards.
func (s *streamTranslator) translateLine(line string) []api.ChatCompletionChunk {
	if !strings.HasPrefix(line, "data:") {
		return nil
	}

	raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	debug.Raw("streaming", raw)

	// The backend's own end-of-stream sentinel carries no content; the
	// translator emits its own terminal sequence instead.
	if raw == "" || strings.Contains(raw, "[DONE]") {
		return nil
	}

	var event conversationEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		slog.Warn("skipping malformed upstream event",
			"chat_id", s.chatID,
			"error", err.Error(),
			"data", debug.Truncate(raw, 200),
		)
		return nil
	}

	// Only the last text block matters; it carries the newest snapshot.
	var latest *eventContent
	for i := range event.Contents {
		if event.Contents[i].ContentType == "text" {
			latest = &event.Contents[i]
		}
	}
	if latest == nil || latest.Content == nil {
		return nil
	}
	snapshot := *latest.Content

	var delta string
	if strings.HasPrefix(snapshot, s.full) {
		delta = snapshot[len(s.full):]
	} else {
		// Non-monotonic snapshot. Emit the full new content rather than
		// lose it; the client may see repeated text.
		slog.Warn("stream content reset, emitting full snapshot",
			"chat_id", s.chatID,
			"previous_len", len(s.full),
			"snapshot_len", len(snapshot),
		)
		observability.StreamResetsTotal.Inc()
		delta = snapshot
	}

	if delta == "" {
		return nil
	}

	chunks := make([]api.ChatCompletionChunk, 0, 2)
	if s.first {
		chunks = append(chunks, api.NewRoleChunk(s.chatID, s.model))
		s.first = false
	}
	chunks = append(chunks, api.NewContentChunk(s.chatID, s.model, delta))

	s.full = snapshot
	return chunks
}
