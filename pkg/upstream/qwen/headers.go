package qwen

import (
	"net/http"
	"strings"

	"github.com/qwenrelay/qwenrelay/pkg/accounts"
)

// The backend rejects requests that do not look like its own web client,
// so every call carries a full browser header set.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

const (
	cnOrigin   = "https://www.tongyi.com"
	intlOrigin = "https://chat.qwen.ai"
)

// cnHeaders builds the domestic-site header set from a credential record.
func cnHeaders(acct accounts.CNAccount) http.Header {
	h := http.Header{}
	h.Set("Origin", cnOrigin)
	h.Set("Referer", cnOrigin+"/")
	h.Set("User-Agent", userAgent)
	h.Set("Cookie", sanitizeHeaderValue(acct.Cookie))
	h.Set("x-xsrf-token", acct.XSRFToken)
	h.Set("x-platform", "pc_tongyi")
	h.Set("Accept", "text/event-stream")
	h.Set("Content-Type", "application/json;charset=UTF-8")
	return h
}

// intlHeaders builds the alternate-site header set from a credential record.
func intlHeaders(acct accounts.IntlAccount) http.Header {
	h := http.Header{}
	h.Set("Origin", intlOrigin)
	h.Set("Referer", intlOrigin+"/")
	h.Set("User-Agent", userAgent)
	h.Set("Authorization", acct.Authorization)
	h.Set("Cookie", sanitizeHeaderValue(acct.Cookie))
	h.Set("bx-ua", acct.BxUA)
	h.Set("Accept", "application/json, text/event-stream")
	h.Set("Content-Type", "application/json;charset=UTF-8")
	return h
}

// sanitizeHeaderValue strips CR, LF, and other control characters from a
// pasted credential value. Browser-exported cookies routinely pick up
// stray newlines that would make the header invalid.
func sanitizeHeaderValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
}
