// Package gateway wires the request pipeline together: classify the
// task, pick an account, and dispatch to the streaming conversation path
// or the long-poll generation path.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/classify"
	"github.com/qwenrelay/qwenrelay/pkg/observability"
	"github.com/qwenrelay/qwenrelay/pkg/transport"
	"github.com/qwenrelay/qwenrelay/pkg/upstream/qwen"
)

// Upstream is the backend surface the gateway depends on. *qwen.Client
// implements it; tests substitute fakes.
type Upstream interface {
	Prewarm(ctx context.Context, acct accounts.CNAccount) error
	Stream(ctx context.Context, acct accounts.CNAccount, payload *qwen.ConversationPayload, model string) (<-chan api.ChatCompletionChunk, error)
	RunTask(ctx context.Context, acct accounts.IntlAccount, req *api.ChatCompletionRequest) (*api.ChatCompletion, error)
}

// Service routes chat completion requests to the right upstream path.
// It implements transport.ChatCompleter.
type Service struct {
	upstream Upstream
	store    *accounts.Store
	logger   *slog.Logger
}

var _ transport.ChatCompleter = (*Service)(nil)

// New creates a gateway service.
func New(upstream Upstream, store *accounts.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		upstream: upstream,
		store:    store,
		logger:   logger,
	}
}

// ChatCompletion classifies the request by model name and serves it.
// Text and vision requests stream; image and video requests resolve to a
// single completion via the long-poll path. Classification is total, so
// every request lands somewhere.
func (s *Service) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
	kind := classify.Classify(req.Model)
	table := s.store.Table()

	if kind.IsLongPoll() {
		return s.serveTask(ctx, table, req, w)
	}
	return s.serveStream(ctx, table, req, w)
}

// serveStream handles the text and vision path: pre-warm, open the
// conversation, and forward translated chunks.
func (s *Service) serveStream(ctx context.Context, table *accounts.Table, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
	accountID := table.Route(req.Model)
	acct, err := table.CN(accountID)
	if err != nil {
		// Credentials are checked before any outbound call.
		return api.NewInvalidRequestError("model", err.Error())
	}

	s.logger.Info("dispatching streaming request",
		"model", req.Model,
		"account_id", accountID,
	)

	// Pre-warm is best effort. A cold session degrades the first turn but
	// never fails the request.
	if err := s.upstream.Prewarm(ctx, acct); err != nil {
		observability.PrewarmFailuresTotal.Inc()
		s.logger.Warn("session pre-warm failed, continuing",
			"account_id", accountID,
			"error", err.Error(),
		)
	}

	payload := qwen.NewConversationPayload(req)
	ch, err := s.upstream.Stream(ctx, acct, payload, req.Model)
	if err != nil {
		return err
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	for chunk := range ch {
		if err := w.WriteChunk(ctx, chunk); err != nil {
			// Client gone; the context cancel propagated by the caller
			// stops the upstream reader.
			return fmt.Errorf("writing chunk: %w", err)
		}
	}
	return nil
}

// serveTask handles the image and video path: submit the generation job,
// wait for it to resolve, and return a single completion.
func (s *Service) serveTask(ctx context.Context, table *accounts.Table, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
	acct, err := table.Intl()
	if err != nil {
		return api.NewInvalidRequestError("model", err.Error())
	}

	s.logger.Info("dispatching generation job",
		"model", req.Model,
		"kind", string(classify.Classify(req.Model)),
	)

	resp, err := s.upstream.RunTask(ctx, acct, req)
	if err != nil {
		return err
	}
	return w.WriteCompletion(ctx, resp)
}
