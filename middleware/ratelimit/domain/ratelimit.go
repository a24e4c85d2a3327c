package domain

// Camada de domínio do rate limit por categoria.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Category é a classe de endpoint que define a política aplicada.
type Category string

const (
	CategoryChat    Category = "chat"
	CategoryVoice   Category = "voice"
	CategoryAdmin   Category = "admin"
	CategoryPayment Category = "payment"
	CategoryGeneral Category = "general"
	CategoryStatic  Category = "static"

	// CategoryNone indica que o path tem rate limit próprio e este middleware
	// não deve fazer o gating.
	CategoryNone Category = "none"
)

// Categories lista as categorias que possuem política (CategoryNone não tem).
func Categories() []Category {
	return []Category{
		CategoryChat,
		CategoryVoice,
		CategoryAdmin,
		CategoryPayment,
		CategoryGeneral,
		CategoryStatic,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Policy é a política imutável de uma categoria.
type Policy struct {
	Quota         int `yaml:"quota" json:"quota"`
	WindowSeconds int `yaml:"window_seconds" json:"window_seconds"`
	MaxViolations int `yaml:"max_violations" json:"max_violations"`
	BlockSeconds  int `yaml:"block_seconds" json:"block_seconds"`
}

func (p Policy) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

func (p Policy) BlockDuration() time.Duration {
	return time.Duration(p.BlockSeconds) * time.Second
}

// PolicySource resolve a política de uma categoria.
type PolicySource interface {
	Lookup(Category) (Policy, error)
}

// Request é o mínimo que a decisão precisa saber de uma requisição:
// o path alvo e a origem de rede.
type Request struct {
	Path   string
	Origin Origin
}

// Code distingue o motivo de uma negação.
type Code string

const (
	CodeNone               Code = ""
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeTemporarilyBlocked Code = "TEMPORARILY_BLOCKED"
)

type Decision struct {
	Allowed bool
	// Abstained indica que a categoria é CategoryNone e nada foi contabilizado.
	Abstained bool
	// Degraded indica fail-open: houve erro interno e a request foi liberada.
	Degraded bool

	Category Category
	Code     Code
	Client   ClientKey

	Count      int
	Limit      int
	ResetAt    time.Time
	Violations int

	Blocked        bool
	BlockExpiresAt time.Time

	// RetryAfter é o valor a ser retornado em Retry-After quando negar.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Remaining retorna max(0, limit - count); bloqueado sempre retorna 0.
func (d Decision) Remaining() int {
	if d.Blocked {
		return 0
	}
	if r := d.Limit - d.Count; r > 0 {
		return r
	}
	return 0
}

// Gated indica se a decisão passou pelo limitador (e portanto tem headers).
func (d Decision) Gated() bool {
	return !d.Abstained && !d.Degraded
}

// WindowStore mantém os contadores por (cliente, categoria, janela).
//
// Increment deve ser atômico por chave: duas chamadas concorrentes para a mesma
// chave e janela resultam em duas contagens, nunca em uma.
type WindowStore interface {
	Increment(key ClientKey, category Category, windowSeconds int) (count int, resetAt time.Time)
}

// ViolationStatus é o estado de escalonamento de um (cliente, categoria).
type ViolationStatus struct {
	Violations     int
	Blocked        bool
	BlockExpiresAt time.Time
}

// ViolationTracker mantém o estado Clear -> Warned(n) -> Blocked -> Clear.
type ViolationTracker interface {
	Status(key ClientKey, category Category) ViolationStatus
	RecordIfOverQuota(key ClientKey, category Category, count int, policy Policy) ViolationStatus
}

// Observer recebe as decisões (métricas, etc). Não deve bloquear.
type Observer interface {
	ObserveDecision(Decision)
	ObserveDegraded(err error)
}

// WindowIndex é floor(unix(now) / windowSeconds). Deve ser calculado uma única
// vez por request e usado até o fim do incremento.
func WindowIndex(now time.Time, windowSeconds int) int64 {
	sec := now.Unix()
	ws := int64(windowSeconds)
	idx := sec / ws
	if sec%ws != 0 && sec < 0 {
		idx--
	}
	return idx
}

// WindowEnd é o instante em que a janela do índice termina.
func WindowEnd(index int64, windowSeconds int) time.Time {
	return time.Unix((index+1)*int64(windowSeconds), 0)
}
