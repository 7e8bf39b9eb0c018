package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCache_RecordRespectsCapacity(t *testing.T) {
	cache := NewEventCache(3)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		cache.Record("c1", base.Add(time.Duration(i)*time.Second), "u1")
	}

	assert.Equal(t, 3, cache.Len("c1"))
	// The two oldest events were dropped
	assert.Equal(t, 0, cache.CountSince("c1", base.Add(time.Hour)))
	assert.Equal(t, 3, cache.CountSince("c1", base.Add(2*time.Second)))
	assert.Equal(t, 3, cache.CountSince("c1", base))
}

func TestEventCache_DefaultCapacity(t *testing.T) {
	cache := NewEventCache(0)
	now := time.Now()
	for i := 0; i < DefaultCacheCapacity+20; i++ {
		cache.Record("c1", now, "u1")
	}
	assert.Equal(t, DefaultCacheCapacity, cache.Len("c1"))
}

func TestEventCache_EvictOlderThan(t *testing.T) {
	cache := NewEventCache(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cache.Record("c1", now.Add(-6*time.Minute), "u1")
	cache.Record("c1", now.Add(-5*time.Minute), "u2")
	cache.Record("c1", now.Add(-1*time.Minute), "u3")

	removed := cache.EvictOlderThan("c1", now, RetentionHorizon)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, cache.Len("c1"))

	// Eviction is idempotent
	assert.Equal(t, 0, cache.EvictOlderThan("c1", now, RetentionHorizon))
	assert.Equal(t, 2, cache.Len("c1"))

	assert.Equal(t, 0, cache.EvictOlderThan("unknown", now, RetentionHorizon))
}

func TestEventCache_CountSinceIgnoresInsertionOrder(t *testing.T) {
	cache := NewEventCache(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cache.Record("c1", now.Add(-10*time.Second), "u1")
	cache.Record("c1", now.Add(-3*time.Minute), "u2")
	cache.Record("c1", now.Add(-30*time.Second), "u3")
	cache.Record("c1", now.Add(-time.Minute), "u4")

	assert.Equal(t, 3, MinuteRate(cache, "c1", now))
	assert.Equal(t, 0, MinuteRate(cache, "c2", now))
}

func TestEventCache_CapacityEvictsOldestByTime(t *testing.T) {
	cache := NewEventCache(2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cache.Record("c1", now.Add(-10*time.Second), "recent")
	cache.Record("c1", now.Add(-5*time.Second), "newest")
	// Arrives last but happened first
	cache.Record("c1", now.Add(-200*time.Second), "late")

	require.Equal(t, 2, cache.Len("c1"))
	assert.Equal(t, 2, MinuteRate(cache, "c1", now))
	assert.Equal(t, []string{"newest", "recent"}, cache.ActorsSince("c1", now.Add(-RetentionHorizon)))
}

func TestMinuteRate_IgnoresFutureEvents(t *testing.T) {
	cache := NewEventCache(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cache.Record("c1", now.Add(-30*time.Second), "u1")
	cache.Record("c1", now.Add(5*time.Second), "u2")
	cache.Record("c1", now, "u3")

	assert.Equal(t, 2, MinuteRate(cache, "c1", now))
	assert.Equal(t, 3, cache.CountSince("c1", now.Add(-time.Minute)))
	assert.Equal(t, 0, cache.CountBetween("c1", now.Add(time.Minute), now))
}

func TestEventCache_ActorsSince(t *testing.T) {
	cache := NewEventCache(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cache.Record("c1", now.Add(-time.Minute), "zed")
	cache.Record("c1", now.Add(-2*time.Minute), "amy")
	cache.Record("c1", now.Add(-3*time.Minute), "zed")
	cache.Record("c1", now.Add(-10*time.Minute), "old")

	assert.Equal(t, []string{"amy", "zed"}, cache.ActorsSince("c1", now.Add(-RetentionHorizon)))
	assert.Empty(t, cache.ActorsSince("c2", now))
}

func TestEventCache_Forget(t *testing.T) {
	cache := NewEventCache(10)
	cache.Record("c1", time.Now(), "u1")
	cache.Record("c2", time.Now(), "u1")

	cache.Forget("c1")

	assert.Equal(t, 0, cache.Len("c1"))
	assert.Equal(t, 1, cache.Len("c2"))
}

func TestEventCache_ConcurrentRecord(t *testing.T) {
	cache := NewEventCache(1000)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Record("c1", now, "u1")
				cache.CountSince("c1", now.Add(-time.Minute))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 800, cache.Len("c1"))
}

func TestFiveMinuteHistogram(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   [5]int
	}{
		{"empty", nil, [5]int{0, 0, 0, 0, 0}},
		{"padded", []int{7, 9}, [5]int{0, 0, 0, 7, 9}},
		{"exact", []int{1, 2, 3, 4, 5}, [5]int{1, 2, 3, 4, 5}},
		{"truncated", []int{1, 2, 3, 4, 5, 6, 7}, [5]int{3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FiveMinuteHistogram(tt.counts))
		})
	}
}
