// Package api defines the OpenAI-compatible wire types served by the
// qwenrelay gateway: chat completion requests, streaming chunks, complete
// responses, model listings, and the structured error envelope.
//
// The chunk shape is fixed by client compatibility requirements:
//
//	{"id","object":"chat.completion.chunk","created","model",
//	 "choices":[{"index":0,"delta":{...},"finish_reason":null|"stop"}]}
//
// Usage counters are always reported as zero; the gateway performs no
// token accounting.
package api
