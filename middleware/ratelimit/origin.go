package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"admission-gateway/middleware/ratelimit/domain"
)

// OriginFromRequest extrai apenas endereços de rede. User-agent, referer e
// afins ficam de fora de propósito: mudam dentro da mesma sessão.
func OriginFromRequest(r *http.Request) domain.Origin {
	return domain.Origin{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RealIP:       r.Header.Get("X-Real-IP"),
		RemoteAddr:   remoteHost(r.RemoteAddr),
	}
}

// ClientKey é a chave de rate limit da request.
func ClientKey(r *http.Request) domain.ClientKey {
	return OriginFromRequest(r).ClientKey()
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	return addr
}
