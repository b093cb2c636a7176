package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/api"
	"github.com/qwenrelay/qwenrelay/pkg/classify"
)

// Logging returns middleware that emits structured log entries for each
// chat completion. The log entry includes the requested model, the task
// kind it classified to, duration, request ID, and the outcome.
//
// HTTP status codes are not visible at this level; the adapter's
// HTTP-level middleware logs those.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatCompleter) ChatCompleter {
		return ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			err := next.ChatCompletion(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("model", req.Model),
				slog.String("kind", string(classify.Classify(req.Model))),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return err
		})
	}
}
