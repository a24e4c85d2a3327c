package infra

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/middleware/ratelimit/domain"
)

func TestWindowStore_CountsWithinWindow(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))
	key := domain.NewClientKey("10.0.0.1")
	windowEnd := clk.Now().Add(60 * time.Second)

	for i := 1; i <= 5; i++ {
		count, resetAt := s.Increment(key, domain.CategoryChat, 60)
		require.Equal(t, i, count)
		assert.Equal(t, windowEnd, resetAt)
		clk.Advance(2 * time.Second)
	}
}

func TestWindowStore_NewWindowRestartsAtOne(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))
	key := domain.NewClientKey("10.0.0.1")

	for i := 0; i < 7; i++ {
		s.Increment(key, domain.CategoryChat, 60)
	}
	clk.Advance(61 * time.Second)

	count, resetAt := s.Increment(key, domain.CategoryChat, 60)
	assert.Equal(t, 1, count)
	assert.Equal(t, time.Unix(1_700_000_040+120, 0), resetAt)
	assert.Equal(t, 1, s.Len())
}

func TestWindowStore_BoundaryBelongsToNextWindow(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))
	key := domain.NewClientKey("10.0.0.1")

	clk.Advance(59*time.Second + 999*time.Millisecond)
	count, first := s.Increment(key, domain.CategoryGeneral, 60)
	require.Equal(t, 1, count)

	clk.Advance(time.Millisecond) // exatamente na borda
	count, second := s.Increment(key, domain.CategoryGeneral, 60)
	assert.Equal(t, 1, count)
	assert.Equal(t, first.Add(60*time.Second), second)
}

func TestWindowStore_IsolatesClientsAndCategories(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))
	a := domain.NewClientKey("10.0.0.1")
	b := domain.NewClientKey("10.0.0.2")

	s.Increment(a, domain.CategoryChat, 60)
	s.Increment(a, domain.CategoryChat, 60)

	count, _ := s.Increment(b, domain.CategoryChat, 60)
	assert.Equal(t, 1, count)
	count, _ = s.Increment(a, domain.CategoryVoice, 60)
	assert.Equal(t, 1, count)
}

func TestWindowStore_ConcurrentIncrementsAreNotLost(t *testing.T) {
	s := NewWindowStore(WithClock(newFakeClock().Now), WithShards(4))
	key := domain.NewClientKey("10.0.0.1")

	const workers = 64
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.Increment(key, domain.CategoryChat, 60)
			}
		}()
	}
	wg.Wait()

	count, _ := s.Increment(key, domain.CategoryChat, 60)
	assert.Equal(t, workers*perWorker+1, count)
	assert.Equal(t, 1, s.Len())
}

func TestWindowStore_TwoConcurrentRequestsCountTwice(t *testing.T) {
	s := NewWindowStore(WithClock(newFakeClock().Now))
	key := domain.NewClientKey("10.0.0.1")

	results := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _ := s.Increment(key, domain.CategoryChat, 60)
			results <- c
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for c := range results {
		seen[c] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, seen)
	assert.Equal(t, 1, s.Len())
}

func TestWindowStore_LazySweepBoundsMemory(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))

	const clientsPerWindow = 200
	const windows = 20
	for w := 0; w < windows; w++ {
		for c := 0; c < clientsPerWindow; c++ {
			key := domain.NewClientKey(fmt.Sprintf("10.%d.%d.%d", w, c/250, c%250))
			s.Increment(key, domain.CategoryGeneral, 60)
		}
		clk.Advance(60 * time.Second)
	}

	// sem sweep seriam windows*clientsPerWindow entradas
	assert.LessOrEqual(t, s.Len(), 2*clientsPerWindow)
}

func TestWindowStore_SweepExpired(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now))

	for i := 0; i < 50; i++ {
		s.Increment(domain.NewClientKey(fmt.Sprintf("10.0.0.%d", i)), domain.CategoryStatic, 10)
	}
	require.Equal(t, 50, s.Len())

	assert.Equal(t, 0, s.SweepExpired())

	clk.Advance(10 * time.Second)
	assert.Equal(t, 50, s.SweepExpired())
	assert.Equal(t, 0, s.Len())
}

func TestWindowStore_SweepKeepsLiveEntries(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(WithClock(clk.Now), WithShards(1))
	short := domain.NewClientKey("10.0.0.1")
	long := domain.NewClientKey("10.0.0.2")

	s.Increment(short, domain.CategoryStatic, 10)
	s.Increment(long, domain.CategoryGeneral, 60)
	clk.Advance(10 * time.Second)

	assert.Equal(t, 1, s.SweepExpired())
	count, _ := s.Increment(long, domain.CategoryGeneral, 60)
	assert.Equal(t, 2, count)
}
