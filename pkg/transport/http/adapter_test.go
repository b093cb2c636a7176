package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/transport"
)

// echoCompleter streams a fixed pair of chunks for every request.
func echoCompleter(t *testing.T) transport.ChatCompleter {
	t.Helper()
	return transport.ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
		id := api.NewChatID()
		if err := w.WriteChunk(ctx, api.NewRoleChunk(id, req.Model)); err != nil {
			return err
		}
		if err := w.WriteChunk(ctx, api.NewContentChunk(id, req.Model, "ok")); err != nil {
			return err
		}
		return w.WriteChunk(ctx, api.NewFinishChunk(id, req.Model))
	})
}

func newTestAdapter(t *testing.T, completer transport.ChatCompleter) *Adapter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Models = []string{"qwen-plus", "wanx-v1"}
	return NewAdapter(completer, cfg)
}

func TestChatCompletionStreams(t *testing.T) {
	a := newTestAdapter(t, echoCompleter(t))

	req := httptest.NewRequest("POST", "/v1/chat/completions",
		strings.NewReader(`{"model":"qwen-plus","messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("missing [DONE] sentinel: %q", rec.Body.String())
	}
}

func TestChatCompletionDefaultsModel(t *testing.T) {
	var gotModel string
	a := newTestAdapter(t, transport.ChatCompleterFunc(
		func(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
			gotModel = req.Model
			return w.WriteChunk(ctx, api.NewFinishChunk(api.NewChatID(), req.Model))
		}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if gotModel != defaultModel {
		t.Errorf("model = %q, want %q", gotModel, defaultModel)
	}
}

func TestChatCompletionRejectsBadInput(t *testing.T) {
	a := newTestAdapter(t, echoCompleter(t))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"invalid json", "application/json", "{not json", http.StatusBadRequest},
		{"wrong content type", "text/plain", "{}", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var envelope api.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil || envelope.Error == nil {
				t.Errorf("body is not an error envelope: %s", rec.Body.String())
			}
		})
	}
}

func TestChatCompletionHandlerError(t *testing.T) {
	a := newTestAdapter(t, transport.ChatCompleterFunc(
		func(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
			return api.NewUpstreamError("conversation endpoint refused")
		}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{"model":"qwen-plus"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}

	var envelope api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Error.Type != api.ErrorTypeUpstreamError {
		t.Errorf("error type = %q", envelope.Error.Type)
	}
}

func TestListModels(t *testing.T) {
	a := newTestAdapter(t, echoCompleter(t))

	req := httptest.NewRequest("GET", "/v1/models", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var list api.ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 2 {
		t.Errorf("list = %+v", list)
	}
	if list.Data[0].ID != "qwen-plus" || list.Data[0].OwnedBy != "system" {
		t.Errorf("model[0] = %+v", list.Data[0])
	}
}

func TestRootEndpoint(t *testing.T) {
	a := newTestAdapter(t, echoCompleter(t))

	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Welcome to") {
			t.Errorf("GET %s body = %q", path, rec.Body.String())
		}
	}
}

func TestRequestIDPropagation(t *testing.T) {
	a := newTestAdapter(t, echoCompleter(t))

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{"model":"qwen-plus"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("X-Request-ID = %q, want req-abc", got)
	}
}
