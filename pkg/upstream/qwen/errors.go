package qwen

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qwenrelay/qwenrelay/pkg/api"
)

// MapHTTPError converts a non-2xx backend response into an APIError.
// The body is sampled for a descriptive message where one exists.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = fmt.Sprintf("backend rejected the configured credentials (HTTP %d)", resp.StatusCode)
		}
		return api.NewUpstreamError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		}
		return api.NewUpstreamError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend response (HTTP %d)", resp.StatusCode)
		}
		return api.NewUpstreamError(message)
	}
}

// MapNetworkError converts a network-level error (connection refused,
// timeout, DNS failure) into an APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewUpstreamError(fmt.Sprintf("backend connection error: %s", err.Error()))
}

// extractErrorMessage samples the response body for an errorMsg field.
// The backend error shape is not documented, so this is best effort.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope struct {
		ErrorMsg string `json:"errorMsg"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.ErrorMsg != "" {
			return envelope.ErrorMsg
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return ""
}
