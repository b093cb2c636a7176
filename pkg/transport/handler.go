package transport

import (
	"context"

	"github.com/qwenrelay/qwenrelay/pkg/api"
)

// ChatCompleter handles one chat completion request. The implementation
// receives the parsed request and writes the result (streaming chunks or
// a complete response) to the ResponseWriter.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error
}

// ChatCompleterFunc is an adapter that allows using an ordinary function
// as a ChatCompleter.
type ChatCompleterFunc func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error

// ChatCompletion calls f(ctx, req, w).
func (f ChatCompleterFunc) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output for the
// handler. The transport layer creates a ResponseWriter for each request.
//
// WriteChunk and WriteCompletion are mutually exclusive on a single
// writer instance: a handler either streams chunks or writes one
// completion. Calling WriteChunk after a finish chunk has been written,
// or mixing the two modes, returns an error.
type ResponseWriter interface {
	// WriteChunk sends a single streaming chunk. Writing a chunk that
	// carries a finish_reason terminates the stream.
	WriteChunk(ctx context.Context, chunk api.ChatCompletionChunk) error

	// WriteCompletion sends a complete non-streaming response. Returns an
	// error if called after WriteChunk on this writer.
	WriteCompletion(ctx context.Context, resp *api.ChatCompletion) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
