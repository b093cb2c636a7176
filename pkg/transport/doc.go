// Package transport defines the handler contract and middleware chain for
// the qwenrelay HTTP/SSE transport layer.
//
// The transport layer bridges OpenAI-compatible clients and the gateway
// core. It deserializes incoming requests into the types defined in
// pkg/api, dispatches them for processing, and serializes results back as
// either a complete JSON body or an SSE chunk stream.
//
// # Handler Contract
//
// ChatCompleter is the single handler interface: it receives a chat
// completion request and writes the result through a ResponseWriter. The
// ResponseWriter abstracts the two response modes, so the handler decides
// between streaming chunks and a single completion without knowing the
// underlying protocol details.
//
// # Middleware
//
// The middleware chain wraps ChatCompleter with cross-cutting concerns:
// panic recovery, request ID assignment (X-Request-ID), and structured
// logging via log/slog. HTTP-level concerns such as authentication and
// metrics are middleware on the adapter in the http subpackage instead.
package transport
