package usecase

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// DefaultCacheCapacity is the per-channel event bound
const DefaultCacheCapacity = 500

// EventCache is a bounded per-channel log of recent events, each log kept sorted by time.
// A single mutex guards every channel.
type EventCache struct {
	mu       sync.Mutex
	capacity int
	logs     map[string][]domain.Event
}

// NewEventCache creates an event cache holding at most capacity events per channel
func NewEventCache(capacity int) *EventCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &EventCache{
		capacity: capacity,
		logs:     make(map[string][]domain.Event),
	}
}

// Record inserts an event in time order, dropping the oldest events beyond capacity
func (c *EventCache) Record(channelID string, at time.Time, actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logs[channelID]
	// Insert after events with the same time so arrival order is kept among equals
	i := sort.Search(len(log), func(i int) bool { return log[i].At.After(at) })
	log = slices.Insert(log, i, domain.Event{At: at, ActorID: actorID})
	if over := len(log) - c.capacity; over > 0 {
		log = slices.Delete(log, 0, over)
	}
	c.logs[channelID] = log
}

// EvictOlderThan removes events older than now-horizon and returns how many were removed
func (c *EventCache) EvictOlderThan(channelID string, now time.Time, horizon time.Duration) int {
	cutoff := now.Add(-horizon)

	c.mu.Lock()
	defer c.mu.Unlock()

	log, ok := c.logs[channelID]
	if !ok {
		return 0
	}
	before := len(log)
	log = slices.DeleteFunc(log, func(e domain.Event) bool {
		return e.IsBefore(cutoff)
	})
	c.logs[channelID] = log
	return before - len(log)
}

// CountSince counts events at or after since
func (c *EventCache) CountSince(channelID string, since time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logs[channelID]
	return len(log) - firstAtOrAfter(log, since)
}

// CountBetween counts events in [since, until]
func (c *EventCache) CountBetween(channelID string, since, until time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logs[channelID]
	end := sort.Search(len(log), func(i int) bool { return log[i].At.After(until) })
	start := firstAtOrAfter(log, since)
	if end < start {
		return 0
	}
	return end - start
}

func firstAtOrAfter(log []domain.Event, since time.Time) int {
	return sort.Search(len(log), func(i int) bool { return !log[i].IsBefore(since) })
}

// ActorsSince returns the distinct actors with events at or after since, sorted
func (c *EventCache) ActorsSince(channelID string, since time.Time) []string {
	c.mu.Lock()
	seen := make(map[string]struct{})
	for _, e := range c.logs[channelID] {
		if !e.IsBefore(since) {
			seen[e.ActorID] = struct{}{}
		}
	}
	c.mu.Unlock()

	actors := make([]string, 0, len(seen))
	for id := range seen {
		actors = append(actors, id)
	}
	slices.Sort(actors)
	return actors
}

// Len returns the number of cached events for a channel
func (c *EventCache) Len(channelID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.logs[channelID])
}

// Channels returns the ids of every channel with cached events
func (c *EventCache) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.logs))
	for id := range c.logs {
		ids = append(ids, id)
	}
	return ids
}

// Forget drops all events of a channel
func (c *EventCache) Forget(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logs, channelID)
}
