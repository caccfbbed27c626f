// Package idgen allocates the human-readable, monotonically increasing
// identifiers used for alerts and cases.
package idgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sequencer allocates the next value of a named monotonic counter. A
// non-zero ttl bounds the counter's lifetime from its first increment; zero
// means the counter never expires.
type Sequencer interface {
	Next(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// alertKeyTTL keeps stale daily alert counters around long enough to survive
// clock skew between instances before they age out. Yearly case counters
// never expire: reissuing a case number would collide with the unique
// case_number constraint.
const alertKeyTTL = 72 * time.Hour

// Generator produces alert IDs and case numbers from a Sequencer.
type Generator struct {
	seq Sequencer
}

// NewGenerator creates a Generator backed by the given sequencer.
func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq}
}

// AlertID returns the next daily-sequential alert identifier, e.g.
// ALERT-20260830-0001. The counter resets each day via the key.
func (g *Generator) AlertID(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := g.seq.Next(ctx, "alerts:"+day, alertKeyTTL)
	if err != nil {
		return "", fmt.Errorf("failed to allocate alert sequence: %w", err)
	}
	return fmt.Sprintf("ALERT-%s-%04d", day, n), nil
}

// CaseNumber returns the next yearly-sequential case number, e.g.
// CASE-2026-0001.
func (g *Generator) CaseNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.UTC().Format("2006")
	n, err := g.seq.Next(ctx, "cases:"+year, 0)
	if err != nil {
		return "", fmt.Errorf("failed to allocate case sequence: %w", err)
	}
	return fmt.Sprintf("CASE-%s-%04d", year, n), nil
}

// RedisSequencer implements Sequencer using Redis INCR, which is atomic
// across service instances.
type RedisSequencer struct {
	client *redis.Client
	prefix string
}

// NewRedisSequencer creates a sequencer using the given Redis client.
func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{
		client: client,
		prefix: "soc:seq:",
	}
}

// Next increments and returns the named counter. The TTL is only applied on
// the first increment of a key.
func (s *RedisSequencer) Next(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := s.prefix + key
	n, err := s.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, full, ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis expire: %w", err)
		}
	}
	return n, nil
}

// MemorySequencer implements Sequencer with in-process counters. Suitable
// for tests and single-node deployments without Redis.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequencer creates an empty in-process sequencer.
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int64)}
}

// Next increments and returns the named counter. In-process counters never
// expire, so ttl is ignored.
func (s *MemorySequencer) Next(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}
