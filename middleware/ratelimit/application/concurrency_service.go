package application

import (
	"context"
	"errors"
	"time"

	"admission-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que não houve vaga dentro do prazo.
var ErrNoSlot = errors.New("no concurrency slot available")

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx da request encerrar.
//   - AcquireTimeout > 0: espera no máximo esse tempo.
//
// Sem Pool, sempre libera. Em caso de erro, release é um no-op seguro.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), err error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	rel, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return func() {}, err
		}
		return func() {}, ErrNoSlot
	}
	return rel, nil
}
