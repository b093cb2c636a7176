package qwen

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/api"
)

// snapshotEvent builds one backend SSE line carrying a single cumulative
// text snapshot.
func snapshotEvent(content string) string {
	return fmt.Sprintf(`data: {"contents":[{"content":%q,"contentType":"text","role":"assistant"}]}`, content)
}

// collectChunks drains the translator over the given SSE lines.
func collectChunks(t *testing.T, lines ...string) []api.ChatCompletionChunk {
	t.Helper()

	body := strings.NewReader(strings.Join(lines, "\n") + "\n")
	ch := make(chan api.ChatCompletionChunk, 64)

	s := newStreamTranslator("qwen-plus")
	s.run(context.Background(), body, ch)
	close(ch)

	var chunks []api.ChatCompletionChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

// contentOf concatenates the content deltas of a chunk sequence.
func contentOf(chunks []api.ChatCompletionChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Choices[0].Delta.Content)
	}
	return b.String()
}

func TestTranslatorIncrementalDeltas(t *testing.T) {
	chunks := collectChunks(t,
		snapshotEvent("Hi"),
		snapshotEvent("Hi there"),
		snapshotEvent("Hi there!"),
	)

	// Role chunk, three content chunks, finish chunk.
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	if chunks[0].Choices[0].Delta.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", chunks[0].Choices[0].Delta.Role)
	}

	deltas := []string{
		chunks[1].Choices[0].Delta.Content,
		chunks[2].Choices[0].Delta.Content,
		chunks[3].Choices[0].Delta.Content,
	}
	want := []string{"Hi", " there", "!"}
	for i := range want {
		if deltas[i] != want[i] {
			t.Errorf("delta[%d] = %q, want %q", i, deltas[i], want[i])
		}
	}

	last := chunks[len(chunks)-1]
	if !last.IsFinish() {
		t.Error("last chunk must carry finish_reason")
	}
}

func TestTranslatorConcatenationMatchesFinalSnapshot(t *testing.T) {
	snapshots := []string{"一", "一只", "一只猫", "一只猫在", "一只猫在睡觉。"}
	lines := make([]string, len(snapshots))
	for i, s := range snapshots {
		lines[i] = snapshotEvent(s)
	}

	chunks := collectChunks(t, lines...)

	if got := contentOf(chunks); got != snapshots[len(snapshots)-1] {
		t.Errorf("concatenated deltas = %q, want %q", got, snapshots[len(snapshots)-1])
	}
}

func TestTranslatorResetEmitsFullSnapshot(t *testing.T) {
	chunks := collectChunks(t,
		snapshotEvent("Hello world"),
		snapshotEvent("Different text"),
	)

	// Role, "Hello world", "Different text", finish.
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	if got := chunks[2].Choices[0].Delta.Content; got != "Different text" {
		t.Errorf("reset delta = %q, want the full new snapshot", got)
	}
}

func TestTranslatorRoleChunkOnlyOnce(t *testing.T) {
	chunks := collectChunks(t,
		snapshotEvent("a"),
		snapshotEvent("ab"),
	)

	roles := 0
	for _, c := range chunks {
		if c.Choices[0].Delta.Role != "" {
			roles++
		}
	}
	if roles != 1 {
		t.Errorf("role chunks = %d, want exactly 1", roles)
	}
}

func TestTranslatorSkipsNoise(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"non-data line", ": keepalive"},
		{"empty data", "data:"},
		{"backend done sentinel", "data: [DONE]"},
		{"malformed json", "data: {not json"},
		{"no text blocks", `data: {"contents":[{"content":"x","contentType":"think"}]}`},
		{"null content", `data: {"contents":[{"content":null,"contentType":"text"}]}`},
		{"unchanged snapshot", snapshotEvent("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := collectChunks(t, tt.line)

			// Only the unconditional finish chunk.
			if len(chunks) != 1 || !chunks[0].IsFinish() {
				t.Errorf("got %d chunks (%+v), want only the finish chunk", len(chunks), chunks)
			}
		})
	}
}

func TestTranslatorUsesLastTextBlock(t *testing.T) {
	line := `data: {"contents":[` +
		`{"content":"stale","contentType":"text"},` +
		`{"content":"plan","contentType":"think"},` +
		`{"content":"fresh","contentType":"text"}]}`

	chunks := collectChunks(t, line)

	if got := contentOf(chunks); got != "fresh" {
		t.Errorf("content = %q, want the last text block", got)
	}
}

func TestTranslatorFinishAfterTruncatedStream(t *testing.T) {
	// Stream ends abruptly after one snapshot with no terminal event.
	chunks := collectChunks(t, snapshotEvent("partial answ"))

	last := chunks[len(chunks)-1]
	if !last.IsFinish() {
		t.Error("truncated stream must still end with a finish chunk")
	}
	if got := contentOf(chunks); got != "partial answ" {
		t.Errorf("content = %q, want partial text preserved", got)
	}
}

func TestStreamAgainstMockBackend(t *testing.T) {
	var gotXSRF, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotXSRF = r.Header.Get("x-xsrf-token")
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, snapshotEvent("streamed")+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := New(Config{ConversationURL: srv.URL})
	acct := accounts.CNAccount{ID: 1, Cookie: "session=abc", XSRFToken: "tok-1"}

	ch, err := c.Stream(context.Background(), acct, &ConversationPayload{Action: "next"}, "qwen-plus")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var chunks []api.ChatCompletionChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}

	if gotXSRF != "tok-1" {
		t.Errorf("x-xsrf-token = %q, want tok-1", gotXSRF)
	}
	if gotAccept != "text/event-stream" {
		t.Errorf("Accept = %q, want text/event-stream", gotAccept)
	}
	if got := contentOf(chunks); got != "streamed" {
		t.Errorf("content = %q, want streamed", got)
	}
	if !chunks[len(chunks)-1].IsFinish() {
		t.Error("stream must end with finish chunk")
	}
}

func TestStreamUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{ConversationURL: srv.URL})
	acct := accounts.CNAccount{ID: 1, Cookie: "session=abc", XSRFToken: "tok-1"}

	_, err := c.Stream(context.Background(), acct, &ConversationPayload{}, "qwen-plus")
	if err == nil {
		t.Fatal("expected error on 429")
	}

	apiErr, ok := err.(*api.APIError)
	if !ok || apiErr.Type != api.ErrorTypeTooManyRequests {
		t.Errorf("error = %v, want too_many_requests APIError", err)
	}
}

func TestStreamConnectionRefused(t *testing.T) {
	c := New(Config{ConversationURL: "http://127.0.0.1:1"})
	acct := accounts.CNAccount{ID: 1, Cookie: "session=abc", XSRFToken: "tok-1"}

	_, err := c.Stream(context.Background(), acct, &ConversationPayload{}, "qwen-plus")
	if err == nil {
		t.Fatal("expected connection error")
	}
	apiErr, ok := err.(*api.APIError)
	if !ok || apiErr.Type != api.ErrorTypeUpstreamError {
		t.Errorf("error = %v, want upstream_error APIError", err)
	}
}
