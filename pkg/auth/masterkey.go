package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// MasterKeyAuthenticator validates bearer tokens against a single
// configured master key using SHA-256 hashing and constant-time
// comparison. The plaintext key is not retained.
type MasterKeyAuthenticator struct {
	keyHash [32]byte
}

// NewMasterKey creates an authenticator for the given master key.
func NewMasterKey(key string) *MasterKeyAuthenticator {
	return &MasterKeyAuthenticator{keyHash: sha256.Sum256([]byte(key))}
}

// Authenticate extracts the bearer token and compares it to the master key.
// Returns Yes on match, No if a bearer token is present but wrong,
// Abstain if no Authorization header or not a Bearer token.
func (a *MasterKeyAuthenticator) Authenticate(_ context.Context, r *http.Request) AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return AuthResult{Decision: Abstain}
	}

	// Must be Bearer token.
	if !strings.HasPrefix(header, "Bearer ") {
		return AuthResult{Decision: Abstain}
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return AuthResult{Decision: No, Err: ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(tokenHash[:], a.keyHash[:]) == 1 {
		return AuthResult{
			Decision: Yes,
			Identity: &Identity{Subject: "master", Method: "master_key"},
		}
	}

	return AuthResult{Decision: No, Err: ErrForbidden}
}
