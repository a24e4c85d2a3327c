package infra

import (
	"sync"
	"time"

	"admission-gateway/middleware/ratelimit/domain"
)

// ViolationTracker implementa a política "três strikes, cooldown completo":
// violations só sobe (uma por request acima da cota) e só volta a zero quando
// o bloqueio expira. Não existe decaimento gradual.
type ViolationTracker struct {
	shards []*violationShard
	now    func() time.Time
}

type violationShard struct {
	mu     sync.Mutex
	states map[slotKey]*violationState
}

type violationState struct {
	violations int
	// zero = sem bloqueio
	blockExpiresAt time.Time
}

var _ domain.ViolationTracker = (*ViolationTracker)(nil)

func NewViolationTracker(opts ...Option) *ViolationTracker {
	o := buildOptions(opts)
	t := &ViolationTracker{
		shards: make([]*violationShard, o.shards),
		now:    o.now,
	}
	for i := range t.shards {
		t.shards[i] = &violationShard{states: make(map[slotKey]*violationState)}
	}
	return t
}

func (t *ViolationTracker) shardFor(sk slotKey) *violationShard {
	return t.shards[sk.shard(len(t.shards))]
}

// Status retorna o estado atual. Um bloqueio vencido é resetado no lugar
// (violations = 0) antes de responder; a entrada não é apagada.
func (t *ViolationTracker) Status(key domain.ClientKey, category domain.Category) domain.ViolationStatus {
	now := t.now()
	sk := slotKey{client: key, category: category}
	sh := t.shardFor(sk)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[sk]
	if !ok {
		return domain.ViolationStatus{}
	}
	st.expire(now)
	return st.status(now)
}

// IsBlocked é verdadeiro enquanto houver bloqueio não vencido, independente da
// contagem da janela atual.
func (t *ViolationTracker) IsBlocked(key domain.ClientKey, category domain.Category) bool {
	return t.Status(key, category).Blocked
}

// RecordIfOverQuota registra uma violação se count > quota e bloqueia ao
// atingir MaxViolations.
func (t *ViolationTracker) RecordIfOverQuota(key domain.ClientKey, category domain.Category, count int, p domain.Policy) domain.ViolationStatus {
	now := t.now()
	sk := slotKey{client: key, category: category}
	sh := t.shardFor(sk)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[sk]
	if ok {
		st.expire(now)
	}
	if count <= p.Quota {
		if !ok {
			return domain.ViolationStatus{}
		}
		return st.status(now)
	}

	if !ok {
		st = &violationState{}
		sh.states[sk] = st
	}
	// outra request concorrente já bloqueou: não conta de novo
	if st.blocked(now) {
		return st.status(now)
	}

	st.violations++
	if st.violations >= p.MaxViolations {
		st.blockExpiresAt = now.Add(p.BlockDuration())
	}
	return st.status(now)
}

// Len retorna quantos (cliente, categoria) têm estado.
func (t *ViolationTracker) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		n += len(sh.states)
		sh.mu.Unlock()
	}
	return n
}

func (st *violationState) blocked(now time.Time) bool {
	return !st.blockExpiresAt.IsZero() && now.Before(st.blockExpiresAt)
}

func (st *violationState) expire(now time.Time) {
	if !st.blockExpiresAt.IsZero() && !now.Before(st.blockExpiresAt) {
		st.violations = 0
		st.blockExpiresAt = time.Time{}
	}
}

func (st *violationState) status(now time.Time) domain.ViolationStatus {
	vs := domain.ViolationStatus{Violations: st.violations}
	if st.blocked(now) {
		vs.Blocked = true
		vs.BlockExpiresAt = st.blockExpiresAt
	}
	return vs
}
