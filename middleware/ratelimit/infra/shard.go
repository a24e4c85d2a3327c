package infra

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"admission-gateway/middleware/ratelimit/domain"
)

const defaultShards = 32

type slotKey struct {
	client   domain.ClientKey
	category domain.Category
}

func (k slotKey) shard(n int) int {
	h := xxhash.Sum64String(string(k.client) + "|" + string(k.category))
	return int(h % uint64(n))
}

type options struct {
	now    func() time.Time
	shards int
}

type Option func(*options)

// WithClock troca o relógio (útil em testes).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShards define quantos locks independentes o store usa.
func WithShards(n int) Option {
	return func(o *options) { o.shards = n }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, shards: defaultShards}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards <= 0 {
		o.shards = 1
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}
