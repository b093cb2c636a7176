package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator validates HS256-signed bearer tokens against a shared
// secret. Tokens without JWT structure are left to the next authenticator
// in the chain (e.g. the master key).
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWT creates a JWT authenticator with the given shared secret.
// When issuer is non-empty the iss claim is validated as well.
func NewJWT(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// Authenticate extracts a bearer token from the Authorization header and
// validates it as an HS256 JWT.
//
// Decision outcomes:
//   - Abstain: no Authorization header, not a Bearer scheme, or the token
//     does not have JWT structure
//   - No: structurally a JWT but invalid (expired, bad signature, wrong issuer)
//   - Yes: valid JWT with populated Identity
func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return AuthResult{Decision: Abstain}
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return AuthResult{Decision: Abstain}
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")

	// A compact JWT has exactly three dot-separated segments. Anything
	// else is some other credential type.
	if strings.Count(tokenStr, ".") != 2 {
		return AuthResult{Decision: Abstain}
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, a.parserOptions()...)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return AuthResult{
			Decision: No,
			Err:      fmt.Errorf("invalid JWT: %w", err),
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return AuthResult{
			Decision: No,
			Err:      fmt.Errorf("invalid JWT claims"),
		}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return AuthResult{
			Decision: No,
			Err:      fmt.Errorf("JWT missing sub claim"),
		}
	}

	return AuthResult{
		Decision: Yes,
		Identity: &Identity{Subject: subject, Method: "jwt"},
	}
}

// parserOptions builds JWT parser options based on the configuration.
func (a *JWTAuthenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if a.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.issuer))
	}
	return opts
}
