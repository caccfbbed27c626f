package idgen

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorAlertID(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	first, err := g.AlertID(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260830-0001", first)

	second, err := g.AlertID(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260830-0002", second)

	// A new day starts a fresh counter.
	nextDay, err := g.AlertID(ctx, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260831-0001", nextDay)
}

func TestGeneratorCaseNumber(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	first, err := g.CaseNumber(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2026-0001", first)

	// Case counters are yearly, independent of the daily alert counter.
	_, err = g.AlertID(ctx, now)
	require.NoError(t, err)
	second, err := g.CaseNumber(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2026-0002", second)

	nextYear, err := g.CaseNumber(ctx, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "CASE-2027-0001", nextYear)
}

func TestGeneratorUsesUTCDay(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())

	// 01:30 on Aug 31 in UTC+2 is still 23:30 UTC on Aug 30.
	loc := time.FixedZone("CEST", 2*60*60)
	id, err := g.AlertID(context.Background(), time.Date(2026, 8, 31, 1, 30, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260830-0001", id)
}

func TestMemorySequencerConcurrent(t *testing.T) {
	seq := NewMemorySequencer()
	ctx := context.Background()

	const workers = 20
	const perWorker = 25

	var wg sync.WaitGroup
	seen := make(chan int64, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n, err := seq.Next(ctx, "alerts:20260830", alertKeyTTL)
				assert.NoError(t, err)
				seen <- n
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	var max int64
	for n := range seen {
		assert.False(t, unique[n], "duplicate sequence value %d", n)
		unique[n] = true
		if n > max {
			max = n
		}
	}
	assert.Equal(t, int64(workers*perWorker), max)
}

func TestRedisSequencer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	seq := NewRedisSequencer(client)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := seq.Next(ctx, "alerts:20260830", alertKeyTTL)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	// Counters are independent per key.
	n, err := seq.Next(ctx, "cases:2026", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The first increment sets a TTL so stale daily alert keys age out;
	// yearly case keys never expire.
	assert.Greater(t, mr.TTL("soc:seq:alerts:20260830"), time.Duration(0))
	assert.Equal(t, time.Duration(0), mr.TTL("soc:seq:cases:2026"))
}

func TestRedisSequencerCaseCounterSurvivesExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	g := NewGenerator(NewRedisSequencer(client))
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	first, err := g.CaseNumber(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2026-0001", first)

	alertBefore, err := g.AlertID(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260830-0001", alertBefore)

	// Jump past the alert key TTL. The daily alert counter restarts; the
	// yearly case counter must not, or case numbers would be reissued.
	mr.FastForward(73 * time.Hour)

	second, err := g.CaseNumber(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2026-0002", second)

	alertAfter, err := g.AlertID(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "ALERT-20260830-0001", alertAfter)
}

func TestRedisSequencerFormatsThroughGenerator(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	g := NewGenerator(NewRedisSequencer(client))
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 2; i++ {
		id, err := g.AlertID(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ALERT-20260830-%04d", i), id)
	}
}
