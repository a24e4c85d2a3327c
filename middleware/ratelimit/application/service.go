package application

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"admission-gateway/middleware/ratelimit/domain"
)

// Service é o decisor de admissão (allow/deny) por categoria.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// O estado mora em Windows/Violations, injetados; não há globais.
type Service struct {
	Policies   domain.PolicySource
	Windows    domain.WindowStore
	Violations domain.ViolationTracker

	// Classify mapeia path -> categoria. Se nil, tudo cai em general.
	Classify func(path string) domain.Category

	Observer domain.Observer
	Logger   *zerolog.Logger
	// DegradedLog amostra os logs de fail-open. Se nil, loga todos.
	DegradedLog *rate.Sometimes

	Now func() time.Time
}

// Decide nunca falha: erro ou panic no caminho de decisão vira fail-open.
func (s Service) Decide(req domain.Request) (dec domain.Decision) {
	defer func() {
		if r := recover(); r != nil {
			dec = s.failOpen(req, &panicError{value: r, stack: debug.Stack()})
		}
	}()

	dec, err := s.decide(req)
	if err != nil {
		return s.failOpen(req, err)
	}
	if s.Observer != nil {
		s.Observer.ObserveDecision(dec)
	}
	return dec
}

func (s Service) decide(req domain.Request) (domain.Decision, error) {
	if s.Windows == nil || s.Violations == nil {
		return domain.Decision{}, domain.ErrNoStore
	}
	if s.Policies == nil {
		return domain.Decision{}, fmt.Errorf("%w: no policy source", domain.ErrInvalidPolicy)
	}

	category := domain.CategoryGeneral
	if s.Classify != nil {
		category = s.Classify(req.Path)
	}
	if category == domain.CategoryNone {
		return domain.Decision{Allowed: true, Abstained: true, Category: category}, nil
	}

	p, err := s.Policies.Lookup(category)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("lookup policy %s: %w", category, err)
	}
	if p.Quota <= 0 || p.WindowSeconds <= 0 || p.MaxViolations < 1 {
		return domain.Decision{}, fmt.Errorf("%w: %s %+v", domain.ErrInvalidPolicy, category, p)
	}

	key := req.Origin.ClientKey()
	now := s.now()
	dec := domain.Decision{
		Category: category,
		Client:   key,
		Limit:    p.Quota,
	}

	// bloqueio é soberano: não conta na janela enquanto bloqueado
	if st := s.Violations.Status(key, category); st.Blocked {
		dec.Code = domain.CodeTemporarilyBlocked
		dec.Blocked = true
		dec.BlockExpiresAt = st.BlockExpiresAt
		dec.Violations = st.Violations
		dec.ResetAt = domain.WindowEnd(domain.WindowIndex(now, p.WindowSeconds), p.WindowSeconds)
		dec.RetryAfter = retryAfter(now, st.BlockExpiresAt)
		return dec, nil
	}

	count, resetAt := s.Windows.Increment(key, category, p.WindowSeconds)
	st := s.Violations.RecordIfOverQuota(key, category, count, p)

	dec.Count = count
	dec.ResetAt = resetAt
	dec.Violations = st.Violations
	dec.Blocked = st.Blocked
	dec.BlockExpiresAt = st.BlockExpiresAt
	dec.Allowed = count <= p.Quota && !st.Blocked

	switch {
	case dec.Allowed:
	case st.Blocked:
		dec.Code = domain.CodeTemporarilyBlocked
		dec.RetryAfter = retryAfter(now, st.BlockExpiresAt)
	default:
		dec.Code = domain.CodeRateLimitExceeded
		dec.RetryAfter = retryAfter(now, resetAt)
	}
	return dec, nil
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// retryAfter arredonda para cima em segundos, mínimo de 1s.
func retryAfter(now, until time.Time) time.Duration {
	d := until.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}

func (s Service) failOpen(req domain.Request, err error) domain.Decision {
	func() {
		// observer quebrado não pode derrubar o fail-open
		defer func() { _ = recover() }()
		if s.Observer != nil {
			s.Observer.ObserveDegraded(err)
		}
	}()

	logger := s.logger()
	emit := func() {
		ev := logger.Error().
			Err(err).
			Str("event", "ratelimit.degraded").
			Str("path", req.Path)
		var pe *panicError
		if errors.As(err, &pe) {
			ev = ev.Bytes("stack", pe.stack)
		}
		ev.Msg("rate limiter failed open")
	}
	if s.DegradedLog != nil {
		s.DegradedLog.Do(emit)
	} else {
		emit()
	}

	return domain.Decision{Allowed: true, Degraded: true}
}

func (s Service) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
