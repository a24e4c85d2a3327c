package infra

import (
	"sync"
	"time"

	"admission-gateway/middleware/ratelimit/domain"
)

// WindowStore mantém contadores de janela fixa por (cliente, categoria).
//
// Cada slot guarda só a janela corrente: quando chega uma request de uma janela
// nova o slot é reaproveitado no lugar. Slots de clientes que sumiram são
// removidos pelo sweep preguiçoso do shard, sem goroutine de limpeza.
type WindowStore struct {
	shards []*windowShard
	now    func() time.Time
}

type windowShard struct {
	mu    sync.Mutex
	slots map[slotKey]*windowCounter
	// menor expiresAt entre os slots; zero quando vazio
	nextExpiry time.Time
}

type windowCounter struct {
	index     int64
	count     int
	expiresAt time.Time
}

var _ domain.WindowStore = (*WindowStore)(nil)

func NewWindowStore(opts ...Option) *WindowStore {
	o := buildOptions(opts)
	s := &WindowStore{
		shards: make([]*windowShard, o.shards),
		now:    o.now,
	}
	for i := range s.shards {
		s.shards[i] = &windowShard{slots: make(map[slotKey]*windowCounter)}
	}
	return s
}

// Increment implementa domain.WindowStore. O índice da janela é calculado uma
// única vez e usado até o fim, então uma request exatamente na borda conta em
// uma janela só.
func (s *WindowStore) Increment(key domain.ClientKey, category domain.Category, windowSeconds int) (int, time.Time) {
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	now := s.now()
	index := domain.WindowIndex(now, windowSeconds)
	resetAt := domain.WindowEnd(index, windowSeconds)

	sk := slotKey{client: key, category: category}
	sh := s.shards[sk.shard(len(s.shards))]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sweepLocked(now)

	c, ok := sh.slots[sk]
	if !ok {
		c = &windowCounter{}
		sh.slots[sk] = c
	}
	if !ok || c.index != index {
		c.index = index
		c.count = 0
		c.expiresAt = resetAt
	}
	c.count++

	if sh.nextExpiry.IsZero() || resetAt.Before(sh.nextExpiry) {
		sh.nextExpiry = resetAt
	}
	return c.count, resetAt
}

// SweepExpired remove de todos os shards os slots cuja janela já fechou.
func (s *WindowStore) SweepExpired() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		removed += sh.sweepLocked(now)
		sh.mu.Unlock()
	}
	return removed
}

// Len retorna quantos slots estão vivos (inclusive os ainda não varridos).
func (s *WindowStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.slots)
		sh.mu.Unlock()
	}
	return n
}

// sweepLocked só percorre o shard quando algo realmente expirou.
func (sh *windowShard) sweepLocked(now time.Time) int {
	if sh.nextExpiry.IsZero() || now.Before(sh.nextExpiry) {
		return 0
	}

	removed := 0
	var next time.Time
	for k, c := range sh.slots {
		if !c.expiresAt.After(now) {
			delete(sh.slots, k)
			removed++
			continue
		}
		if next.IsZero() || c.expiresAt.Before(next) {
			next = c.expiresAt
		}
	}
	sh.nextExpiry = next
	return removed
}
