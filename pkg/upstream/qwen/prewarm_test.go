package qwen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
)

func cnTestAccount() accounts.CNAccount {
	return accounts.CNAccount{ID: 1, Cookie: "session=abc", XSRFToken: "tok-1"}
}

func TestPrewarmSuccess(t *testing.T) {
	var gotAccept string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(Config{PrewarmURL: srv.URL})
	acct := cnTestAccount()

	if err := c.Prewarm(context.Background(), acct); err != nil {
		t.Fatalf("Prewarm: %v", err)
	}

	if gotAccept != "application/json, text/plain, */*" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotPayload["module"] != "uploadhistory" || gotPayload["terminal"] != "web" {
		t.Errorf("payload = %+v", gotPayload)
	}
}

func TestPrewarmFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{PrewarmURL: srv.URL})

	if err := c.Prewarm(context.Background(), cnTestAccount()); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestPrewarmUnreachableBackend(t *testing.T) {
	c := New(Config{PrewarmURL: "http://127.0.0.1:1"})

	if err := c.Prewarm(context.Background(), cnTestAccount()); err == nil {
		t.Fatal("expected connection error")
	}
}
