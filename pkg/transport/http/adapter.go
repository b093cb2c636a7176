package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/transport"
)

// defaultModel is assumed when a request names no model, matching the
// behavior OpenAI clients expect from permissive gateways.
const defaultModel = "qwen-plus"

// Adapter serves the OpenAI-compatible API over HTTP.
// It routes requests, deserializes bodies, and hands completions to the
// configured handler.
type Adapter struct {
	completer transport.ChatCompleter
	inflight  *transport.InFlightRegistry
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr        string
	MaxBodySize int64

	// Models is the static model listing served on GET /v1/models.
	Models []string

	// ServiceName and Version are reported on the root endpoint.
	ServiceName string
	Version     string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8082",
		MaxBodySize: 10 << 20, // 10 MB
		ServiceName: "qwenrelay",
		Version:     "dev",
	}
}

// NewAdapter creates an HTTP adapter around the given handler.
// Middleware is applied to the handler in the given order.
func NewAdapter(completer transport.ChatCompleter, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		completer = transport.Chain(middlewares...)(completer)
	}

	a := &Adapter{
		completer: completer,
		inflight:  transport.NewInFlightRegistry(),
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletion)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /healthz", a.handleRoot)
	a.mux.HandleFunc("GET /{$}", a.handleRoot)

	return a
}

// Handler returns the http.Handler for this adapter. The returned handler
// includes HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// CancelStreams cancels every in-flight streaming request. Called during
// shutdown so draining does not hang on long-lived conversations.
func (a *Adapter) CancelStreams() {
	a.inflight.CancelAll()
}

// handleChatCompletion handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && ct != "application/json;charset=UTF-8" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if req.Model == "" {
		req.Model = defaultModel
	}

	// The request lifetime is registered so shutdown can cancel streams
	// that would otherwise outlive the drain window.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	id := a.inflight.Register(cancel)
	defer a.inflight.Remove(id)

	rw := newSSEResponseWriter(w)
	if err := a.completer.ChatCompletion(ctx, &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleListModels handles GET /v1/models with the static configured
// listing.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	list := api.ModelList{Object: "list", Data: make([]api.Model, 0, len(a.config.Models))}
	for _, id := range a.config.Models {
		list.Data = append(list.Data, api.Model{
			ID:      id,
			Object:  "model",
			Created: now,
			OwnedBy: "system",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// handleRoot serves the unauthenticated liveness endpoint.
func (a *Adapter) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Welcome to " + a.config.ServiceName,
		"version": a.config.Version,
	})
}

// writeHandlerError writes an error response from the handler. If
// streaming has already started the wire contract is already satisfied
// by the finish chunk and sentinel, so the error is only logged.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	apiErr := transport.AsAPIError(err)

	if rw.hasStartedStreaming() {
		slog.Error("handler failed after streaming started", "error", apiErr.Error())
		return
	}

	transport.WriteAPIError(w, apiErr)
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded to the
// response and into the context for the transport-level middleware.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}
