package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/ratelimit/domain"
)

func TestDefaultTable_IsTotal(t *testing.T) {
	tbl := DefaultTable()
	for _, c := range domain.Categories() {
		p, err := tbl.Lookup(c)
		require.NoError(t, err)
		require.NoError(t, Validate(c, p))
	}
}

func TestDefaultTable_PrivilegedCategoriesAreTighter(t *testing.T) {
	tbl := DefaultTable()
	general, _ := tbl.Lookup(domain.CategoryGeneral)
	for _, c := range []domain.Category{domain.CategoryAdmin, domain.CategoryPayment} {
		p, _ := tbl.Lookup(c)
		assert.Less(t, p.Quota, general.Quota, "%s quota", c)
		assert.Greater(t, p.BlockSeconds, general.BlockSeconds, "%s block", c)
	}
}

func TestTable_LookupFallsBackToGeneral(t *testing.T) {
	tbl, err := NewTable(map[domain.Category]domain.Policy{
		domain.CategoryGeneral: {Quota: 7, WindowSeconds: 10, MaxViolations: 1},
	})
	require.NoError(t, err)

	p, err := tbl.Lookup(domain.CategoryChat)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quota)

	p, err = tbl.Lookup(domain.Category("nope"))
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quota)
}

func TestNewTable_RequiresGeneral(t *testing.T) {
	_, err := NewTable(map[domain.Category]domain.Policy{
		domain.CategoryChat: {Quota: 1, WindowSeconds: 1, MaxViolations: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPolicy))
}

func TestNewTable_IsNotAliasedToInput(t *testing.T) {
	in := map[domain.Category]domain.Policy{
		domain.CategoryGeneral: {Quota: 5, WindowSeconds: 60, MaxViolations: 3},
	}
	tbl, err := NewTable(in)
	require.NoError(t, err)

	in[domain.CategoryGeneral] = domain.Policy{Quota: 999, WindowSeconds: 1, MaxViolations: 1}
	p, _ := tbl.Lookup(domain.CategoryGeneral)
	assert.Equal(t, 5, p.Quota)
}

func TestValidate(t *testing.T) {
	ok := domain.Policy{Quota: 1, WindowSeconds: 1, MaxViolations: 1, BlockSeconds: 0}
	require.NoError(t, Validate(domain.CategoryChat, ok))

	bad := []domain.Policy{
		{Quota: 0, WindowSeconds: 1, MaxViolations: 1},
		{Quota: 1, WindowSeconds: 0, MaxViolations: 1},
		{Quota: 1, WindowSeconds: 1, MaxViolations: 0},
		{Quota: 1, WindowSeconds: 1, MaxViolations: 1, BlockSeconds: -1},
	}
	for _, p := range bad {
		err := Validate(domain.CategoryChat, p)
		require.Error(t, err, "%+v", p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, domain.CategoryChat, verr.Category)
	}
}

func TestParse_OverlaysDefaults(t *testing.T) {
	tbl, err := Parse([]byte(`
categories:
  chat:
    quota: 5
    window_seconds: 60
    max_violations: 3
    block_seconds: 3600
`))
	require.NoError(t, err)

	chat, _ := tbl.Lookup(domain.CategoryChat)
	assert.Equal(t, domain.Policy{Quota: 5, WindowSeconds: 60, MaxViolations: 3, BlockSeconds: 3600}, chat)

	admin, _ := tbl.Lookup(domain.CategoryAdmin)
	assert.Equal(t, defaultPolicies[domain.CategoryAdmin], admin)
}

func TestParse_RejectsUnknownCategory(t *testing.T) {
	_, err := Parse([]byte("categories:\n  video:\n    quota: 1\n    window_seconds: 1\n    max_violations: 1\n"))
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestParse_RejectsInvalidPolicy(t *testing.T) {
	_, err := Parse([]byte("categories:\n  admin:\n    quota: 0\n    window_seconds: 60\n    max_violations: 3\n"))
	require.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(name, []byte("categories:\n  static:\n    quota: 1000\n    window_seconds: 10\n    max_violations: 20\n    block_seconds: 30\n"), 0o600))

	tbl, err := LoadFile(name)
	require.NoError(t, err)
	p, _ := tbl.Lookup(domain.CategoryStatic)
	assert.Equal(t, 1000, p.Quota)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
