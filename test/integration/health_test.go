package integration

import (
	"net/http"
	"strings"
	"testing"
)

// TestRootEndpoint verifies the welcome payload on the root path.
func TestRootEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Message string `json:"message"`
		Version string `json:"version"`
	}
	decodeJSON(t, resp, &got)

	if !strings.HasPrefix(got.Message, "Welcome to ") {
		t.Errorf("message = %q, want welcome banner", got.Message)
	}
	if got.Version != "test" {
		t.Errorf("version = %q, want test", got.Version)
	}
}

// TestHealthEndpoint verifies liveness on /healthz.
func TestHealthEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

// TestModelListing verifies GET /v1/models returns the configured models in
// the OpenAI list envelope.
func TestModelListing(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1/models")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Object string `json:"object"`
		Data   []struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &got)

	if got.Object != "list" {
		t.Errorf("object = %q, want list", got.Object)
	}
	ids := make(map[string]bool, len(got.Data))
	for _, m := range got.Data {
		ids[m.ID] = true
		if m.Object != "model" {
			t.Errorf("model %q object = %q", m.ID, m.Object)
		}
	}
	for _, want := range []string{"qwen-plus", "qwen-max", "wanx-v1", "wan2.2-animate"} {
		if !ids[want] {
			t.Errorf("model %q missing from listing", want)
		}
	}
}

// TestRequestIDEchoed verifies a caller-provided X-Request-ID is returned.
func TestRequestIDEchoed(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, testEnv.BaseURL()+"/healthz", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("X-Request-ID", "req-integration-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "req-integration-1" {
		t.Errorf("X-Request-ID = %q, want echo", got)
	}
}
