package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"admission-gateway/middleware/ratelimit/domain"
)

func TestOriginFromRequest_ForwardedForFirstHop(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	assert.Equal(t, "1.2.3.4", OriginFromRequest(r).IP())
}

func TestOriginFromRequest_RealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Real-IP", "8.8.8.8")

	assert.Equal(t, "8.8.8.8", OriginFromRequest(r).IP())
}

func TestOriginFromRequest_FallbacksToRemoteAddrHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	assert.Equal(t, "10.0.0.9", OriginFromRequest(r).IP())
}

func TestOriginFromRequest_Unknown(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = ""

	assert.Equal(t, domain.UnknownIP, OriginFromRequest(r).IP())
}

func TestClientKey_IgnoresVolatileHeaders(t *testing.T) {
	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.RemoteAddr = "10.0.0.9:5555"
	r1.Header.Set("User-Agent", "browser/1.0")
	r1.Header.Set("Referer", "http://example/a")

	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.RemoteAddr = "10.0.0.9:6666"
	r2.Header.Set("User-Agent", "browser/2.0")
	r2.Header.Set("Referer", "http://example/b")
	r2.Header.Set("X-Api-Key", "k2")

	assert.Equal(t, ClientKey(r1), ClientKey(r2))
}
