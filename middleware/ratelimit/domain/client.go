package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnknownIP agrupa todos os clientes sem endereço utilizável numa única cota.
const UnknownIP = "unknown"

const clientKeyLen = 16

// ClientKey é um identificador opaco de tamanho fixo derivado apenas do IP.
type ClientKey string

// Origin carrega os endereços de rede de uma requisição.
type Origin struct {
	ForwardedFor string
	RealIP       string
	RemoteAddr   string
}

// IP retorna o primeiro hop do X-Forwarded-For, depois o X-Real-IP,
// depois o RemoteAddr e por fim UnknownIP.
func (o Origin) IP() string {
	if xff := strings.TrimSpace(o.ForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(o.RealIP); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(o.RemoteAddr); ip != "" {
		return ip
	}
	return UnknownIP
}

// NewClientKey calcula o digest do IP. Nenhum outro header entra no cálculo
// (user-agent/referer mudam dentro da mesma sessão e resetariam a cota).
func NewClientKey(ip string) ClientKey {
	sum := sha256.Sum256([]byte(ip))
	return ClientKey(hex.EncodeToString(sum[:])[:clientKeyLen])
}

func (o Origin) ClientKey() ClientKey {
	return NewClientKey(o.IP())
}
