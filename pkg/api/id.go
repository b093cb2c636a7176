package api

import (
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
)

const chatIDPrefix = "chatcmpl-"

var chatIDPattern = regexp.MustCompile(`^chatcmpl-[0-9a-f]{32}$`)

// NewChatID generates a chat completion identifier with the "chatcmpl-"
// prefix followed by 32 lowercase hex characters. The ID is fixed for the
// lifetime of one streaming invocation.
func NewChatID() string {
	u := uuid.New()
	return chatIDPrefix + hex.EncodeToString(u[:])
}

// ValidateChatID checks whether the given string is a well-formed chat
// completion identifier.
func ValidateChatID(id string) bool {
	return chatIDPattern.MatchString(id)
}
