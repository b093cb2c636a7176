package qwen

import (
	"context"
	"io"
	"time"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
	"github.com/qwenrelay/qwenrelay/pkg/observability"
)

// prewarmPayload queries the upload record listing. The response content
// is irrelevant; the request's side effect of refreshing server-side
// session state is what matters.
var prewarmPayload = map[string]any{
	"pageNo":        1,
	"terminal":      "web",
	"pageSize":      10000,
	"module":        "uploadhistory",
	"fileTypes":     []string{"file", "audio", "video"},
	"recordSources": []string{"chat", "zhiwen", "tingwu"},
	"status":        []int{20, 30, 40, 41},
	"taskTypes":     []string{"local", "net_source", "doc_read", "paper_read", "book_read"},
}

// Prewarm sends a best-effort session warm-up request for the given
// domestic account. It returns an error on any failure; callers decide
// whether that is fatal. The conversation path logs it and proceeds.
func (c *Client) Prewarm(ctx context.Context, acct accounts.CNAccount) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	headers := cnHeaders(acct)
	headers.Set("Accept", "application/json, text/plain, */*")

	req, err := post(ctx, c.prewarmURL, headers, prewarmPayload)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues("cn", "prewarm", "error").Inc()
		return MapNetworkError(err)
	}
	defer resp.Body.Close()
	observability.UpstreamLatency.WithLabelValues("cn", "prewarm").Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamRequestsTotal.WithLabelValues("cn", "prewarm", "error").Inc()
		return MapHTTPError(resp)
	}
	observability.UpstreamRequestsTotal.WithLabelValues("cn", "prewarm", "ok").Inc()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}
