// Package qwen talks to the Tongyi/Qwen web backends and translates their
// wire formats into the OpenAI-compatible shapes served by the gateway.
//
// Two upstream sites are involved. The domestic site serves streaming
// conversations over SSE where each event carries a cumulative snapshot of
// the full assistant text; the stream translator turns those snapshots
// into incremental deltas. The alternate site accepts asynchronous image
// and video generation jobs that are submitted once and then polled for
// completion.
package qwen
