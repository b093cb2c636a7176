// Package classify maps a requested model name to the task kind that
// decides which upstream path serves the request.
package classify

import "strings"

// Kind is the task category of a chat completion request.
type Kind string

const (
	KindText   Kind = "text"
	KindVision Kind = "vision"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
)

// IsLongPoll reports whether the kind is served by the long-poll task
// adapter instead of the streaming path.
func (k Kind) IsLongPoll() bool {
	return k == KindImage || k == KindVideo
}

// Classify determines the task kind from the model name by
// case-insensitive substring match. It is total: unknown names are text.
func Classify(model string) Kind {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "wanx"):
		return KindImage
	case strings.Contains(m, "animate"):
		return KindVideo
	case strings.Contains(m, "vl"), strings.Contains(m, "qvq"):
		return KindVision
	default:
		return KindText
	}
}
