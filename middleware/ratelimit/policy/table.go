package policy

import (
	"fmt"

	"admission-gateway/middleware/ratelimit/domain"
)

// Valores padrão: admin e payment têm cota menor e bloqueio mais longo que
// general/static, porque abuso nesses endpoints custa mais caro.
var defaultPolicies = map[domain.Category]domain.Policy{
	domain.CategoryChat:    {Quota: 30, WindowSeconds: 60, MaxViolations: 3, BlockSeconds: 900},
	domain.CategoryVoice:   {Quota: 10, WindowSeconds: 60, MaxViolations: 3, BlockSeconds: 1800},
	domain.CategoryAdmin:   {Quota: 20, WindowSeconds: 60, MaxViolations: 3, BlockSeconds: 3600},
	domain.CategoryPayment: {Quota: 10, WindowSeconds: 60, MaxViolations: 3, BlockSeconds: 3600},
	domain.CategoryGeneral: {Quota: 100, WindowSeconds: 60, MaxViolations: 5, BlockSeconds: 300},
	domain.CategoryStatic:  {Quota: 300, WindowSeconds: 60, MaxViolations: 10, BlockSeconds: 60},
}

// ValidationError descreve um campo inválido de uma política.
type ValidationError struct {
	Category domain.Category
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy %s: %s %s", e.Category, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidPolicy }

// Validate checa quota > 0, janela > 0, max_violations >= 1 e block_seconds >= 0.
func Validate(c domain.Category, p domain.Policy) error {
	switch {
	case p.Quota <= 0:
		return &ValidationError{Category: c, Field: "quota", Message: "must be > 0"}
	case p.WindowSeconds <= 0:
		return &ValidationError{Category: c, Field: "window_seconds", Message: "must be > 0"}
	case p.MaxViolations < 1:
		return &ValidationError{Category: c, Field: "max_violations", Message: "must be >= 1"}
	case p.BlockSeconds < 0:
		return &ValidationError{Category: c, Field: "block_seconds", Message: "must be >= 0"}
	}
	return nil
}

// Table é a função total categoria -> política. Imutável após NewTable.
type Table struct {
	policies map[domain.Category]domain.Policy
}

var _ domain.PolicySource = (*Table)(nil)

// DefaultTable retorna a tabela compilada.
func DefaultTable() *Table {
	t, err := NewTable(defaultPolicies)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable copia e valida as políticas. general é obrigatório porque é o
// fallback de qualquer categoria sem entrada.
func NewTable(policies map[domain.Category]domain.Policy) (*Table, error) {
	if _, ok := policies[domain.CategoryGeneral]; !ok {
		return nil, &ValidationError{Category: domain.CategoryGeneral, Field: "entry", Message: "is required"}
	}
	t := &Table{policies: make(map[domain.Category]domain.Policy, len(policies))}
	for c, p := range policies {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
		}
		if err := Validate(c, p); err != nil {
			return nil, err
		}
		t.policies[c] = p
	}
	return t, nil
}

// Lookup retorna a política da categoria, caindo para general quando não há
// entrada (não deveria acontecer com o classificador padrão).
func (t *Table) Lookup(c domain.Category) (domain.Policy, error) {
	if t == nil {
		return domain.Policy{}, fmt.Errorf("%w: nil table", domain.ErrUnknownCategory)
	}
	if p, ok := t.policies[c]; ok {
		return p, nil
	}
	if p, ok := t.policies[domain.CategoryGeneral]; ok {
		return p, nil
	}
	return domain.Policy{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
}

// Policies retorna uma cópia da tabela na ordem de domain.Categories.
func (t *Table) Policies() []Entry {
	out := make([]Entry, 0, len(t.policies))
	for _, c := range domain.Categories() {
		if p, ok := t.policies[c]; ok {
			out = append(out, Entry{Category: c, Policy: p})
		}
	}
	return out
}

type Entry struct {
	Category domain.Category
	Policy   domain.Policy
}
