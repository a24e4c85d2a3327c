package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"admission-gateway/middleware/ratelimit/domain"
)

// fileConfig é o formato do arquivo de políticas:
//
//	categories:
//	  chat:
//	    quota: 30
//	    window_seconds: 60
//	    max_violations: 3
//	    block_seconds: 900
//
// Cada categoria informada substitui a entrada padrão inteira.
type fileConfig struct {
	Categories map[string]domain.Policy `yaml:"categories"`
}

// LoadFile lê o YAML e sobrepõe os defaults.
func LoadFile(name string) (*Table, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", name, err)
	}
	return t, nil
}

func Parse(data []byte) (*Table, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	merged := make(map[domain.Category]domain.Policy, len(defaultPolicies))
	for c, p := range defaultPolicies {
		merged[c] = p
	}
	for name, p := range fc.Categories {
		c := domain.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, name)
		}
		merged[c] = p
	}
	return NewTable(merged)
}
