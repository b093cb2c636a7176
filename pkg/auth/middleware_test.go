package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareRejectsWithoutKey(t *testing.T) {
	chain := &AuthChain{
		Authenticators:  []Authenticator{NewMasterKey("sk-secret")},
		DefaultDecision: No,
	}

	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	chain := &AuthChain{
		Authenticators:  []Authenticator{NewMasterKey("sk-secret")},
		DefaultDecision: No,
	}

	handler := Middleware(chain, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer sk-wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestMiddlewareAdmitsValidKeyAndSetsIdentity(t *testing.T) {
	chain := &AuthChain{
		Authenticators:  []Authenticator{NewMasterKey("sk-secret")},
		DefaultDecision: No,
	}

	var got *Identity
	handler := Middleware(chain, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer sk-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.Subject != "master" {
		t.Errorf("identity in context = %+v, want subject master", got)
	}
}

func TestMiddlewareBypassEndpoints(t *testing.T) {
	chain := &AuthChain{
		Authenticators:  []Authenticator{NewMasterKey("sk-secret")},
		DefaultDecision: No,
	}

	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range DefaultBypassEndpoints {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("bypass path %s: status = %d, want 200", path, rec.Code)
		}
	}
}
