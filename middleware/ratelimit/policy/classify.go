package policy

import (
	"path"
	"sort"
	"strings"

	"admission-gateway/middleware/ratelimit/domain"
)

type rule struct {
	prefix   string
	category domain.Category
}

// admin e payment são avaliados antes de qualquer outra regra para que paths
// aninhados em /api nunca caiam em general.
var priorityRules = []rule{
	{"/admin", domain.CategoryAdmin},
	{"/api/admin", domain.CategoryAdmin},
	{"/api/payment", domain.CategoryPayment},
	{"/api/payments", domain.CategoryPayment},
	{"/api/checkout", domain.CategoryPayment},
	{"/api/billing", domain.CategoryPayment},
	{"/api/subscription", domain.CategoryPayment},
	{"/api/webhooks/stripe", domain.CategoryPayment},
}

var defaultRules = []rule{
	{"/api/chat", domain.CategoryChat},
	{"/api/messages", domain.CategoryChat},
	{"/api/companions", domain.CategoryChat},
	{"/api/voice", domain.CategoryVoice},
	{"/api/tts", domain.CategoryVoice},
	{"/api/speech", domain.CategoryVoice},
	{"/_next/static", domain.CategoryStatic},
	{"/_next/image", domain.CategoryStatic},
	{"/static", domain.CategoryStatic},
	{"/assets", domain.CategoryStatic},
	{"/images", domain.CategoryStatic},
	{"/api", domain.CategoryGeneral},
}

// Endpoints com limitador próprio (por usuário/tier). Não fazemos double-gating.
var defaultExempt = []string{
	"/api/conversation",
}

var staticExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".map": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
	".gif": {}, ".svg": {}, ".ico": {}, ".webp": {}, ".avif": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".txt": {}, ".xml": {},
}

// Classifier mapeia path -> categoria. É imutável e seguro para uso concorrente.
type Classifier struct {
	priority []rule
	exempt   []string
	rules    []rule
}

// NewClassifier monta o classificador padrão; extraExempt adiciona prefixos
// que devem retornar domain.CategoryNone.
func NewClassifier(extraExempt ...string) *Classifier {
	c := &Classifier{
		priority: append([]rule(nil), priorityRules...),
		rules:    append([]rule(nil), defaultRules...),
	}
	for _, p := range append(append([]string(nil), defaultExempt...), extraExempt...) {
		if p = normalize(p); p != "" {
			c.exempt = append(c.exempt, p)
		}
	}
	// prefixo mais longo vence
	sort.SliceStable(c.rules, func(i, j int) bool {
		return len(c.rules[i].prefix) > len(c.rules[j].prefix)
	})
	sort.SliceStable(c.priority, func(i, j int) bool {
		return len(c.priority[i].prefix) > len(c.priority[j].prefix)
	})
	return c
}

var defaultClassifier = NewClassifier()

// Classify usa o classificador padrão.
func Classify(p string) domain.Category {
	return defaultClassifier.Classify(p)
}

// Classify nunca falha: paths vazios ou malformados viram general.
func (c *Classifier) Classify(p string) domain.Category {
	p = normalize(p)
	if p == "" {
		return domain.CategoryGeneral
	}

	for _, r := range c.priority {
		if hasSegmentPrefix(p, r.prefix) {
			return r.category
		}
	}
	for _, prefix := range c.exempt {
		if hasSegmentPrefix(p, prefix) {
			return domain.CategoryNone
		}
	}
	for _, r := range c.rules {
		if hasSegmentPrefix(p, r.prefix) {
			return r.category
		}
	}
	if _, ok := staticExtensions[path.Ext(p)]; ok {
		return domain.CategoryStatic
	}
	return domain.CategoryGeneral
}

func normalize(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		return ""
	}
	return strings.ToLower(path.Clean(p))
}

// "/api/chat" casa "/api/chat" e "/api/chat/x", mas não "/api/chatroom".
func hasSegmentPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
