package ratelimit

import (
	"encoding/json"
	"net/http"
	"time"

	"admission-gateway/middleware/ratelimit/domain"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderViolations = "X-RateLimit-Violations"
	HeaderCategory   = "X-RateLimit-Category"
	HeaderRetryAfter = "Retry-After"
)

// SetHeaders anexa os headers informativos da decisão. Retry-After só vai
// quando a request é negada.
func SetHeaders(h http.Header, d domain.Decision) {
	h.Set(HeaderLimit, formatInt(d.Limit))
	h.Set(HeaderRemaining, formatInt(d.Remaining()))
	h.Set(HeaderReset, formatInt64(d.ResetAt.Unix()))
	h.Set(HeaderViolations, formatInt(d.Violations))
	h.Set(HeaderCategory, string(d.Category))
	if !d.Allowed {
		h.Set(HeaderRetryAfter, formatInt(retryAfterSeconds(d)))
	}
}

func retryAfterSeconds(d domain.Decision) int {
	s := int((d.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// DenyBody é o corpo JSON de uma negação. Traz os mesmos números dos headers
// para que clientes não precisem parseá-los.
type DenyBody struct {
	Error        string          `json:"error"`
	Code         domain.Code     `json:"code"`
	Category     domain.Category `json:"category"`
	Limit        int             `json:"limit"`
	Remaining    int             `json:"remaining"`
	Reset        int64           `json:"reset"`
	Violations   int             `json:"violations"`
	RetryAfter   int             `json:"retry_after"`
	BlockedUntil int64           `json:"blocked_until,omitempty"`
}

func NewDenyBody(d domain.Decision) DenyBody {
	body := DenyBody{
		Error:      "Too many requests. Please slow down.",
		Code:       d.Code,
		Category:   d.Category,
		Limit:      d.Limit,
		Remaining:  d.Remaining(),
		Reset:      d.ResetAt.Unix(),
		Violations: d.Violations,
		RetryAfter: retryAfterSeconds(d),
	}
	if body.Code == domain.CodeNone {
		body.Code = domain.CodeRateLimitExceeded
	}
	if d.Blocked {
		body.Error = "Temporarily blocked after repeated rate limit violations."
		body.BlockedUntil = d.BlockExpiresAt.Unix()
	}
	return body
}

// WriteDenied responde a negação: headers, status (429 por padrão) e JSON.
func WriteDenied(w http.ResponseWriter, d domain.Decision, status int) {
	if status == 0 {
		status = http.StatusTooManyRequests
	}
	SetHeaders(w.Header(), d)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewDenyBody(d))
}
