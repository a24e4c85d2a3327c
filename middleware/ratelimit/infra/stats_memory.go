package infra

import (
	"context"
	"sync"

	"admission-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64
	Denied  int64
	Blocked int64
}

func (c *Counters) add(ev domain.StatsEvent) {
	switch {
	case ev.Allowed:
		c.Allowed++
	case ev.Code == domain.CodeTemporarilyBlocked:
		c.Denied++
		c.Blocked++
	default:
		c.Denied++
	}
}

// MemoryStatsStore guarda estatísticas de decisão em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração: com WithTrackKeys o mapa por cliente cresce sem limite.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byCategory map[domain.Category]Counters
	byRoute    map[string]Counters
	byKey      map[domain.ClientKey]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byCategory: make(map[domain.Category]Counters),
		byRoute:    make(map[string]Counters),
		byKey:      make(map[domain.ClientKey]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev)

	c := s.byCategory[ev.Category]
	c.add(ev)
	s.byCategory[ev.Category] = c

	r := s.byRoute[route]
	r.add(ev)
	s.byRoute[route] = r

	if s.trackKeys {
		k := s.byKey[ev.Key]
		k.add(ev)
		s.byKey[ev.Key] = k
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByCategory() map[domain.Category]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Category]Counters, len(s.byCategory))
	for k, v := range s.byCategory {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByKey() map[domain.ClientKey]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ClientKey]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}
