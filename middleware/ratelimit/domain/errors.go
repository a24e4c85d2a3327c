package domain

import "errors"

var (
	// ErrInvalidPolicy indica uma política fora dos limites (quota <= 0, etc).
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrUnknownCategory é retornado quando nem a categoria nem o fallback existem.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrNoStore indica que o decisor foi montado sem store.
	ErrNoStore = errors.New("rate limit store not configured")
)
