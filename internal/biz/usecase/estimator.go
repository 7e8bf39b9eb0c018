package usecase

import (
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

const (
	// RateWindow is the window of the short-term rate estimate
	RateWindow = time.Minute

	// RetentionHorizon is how long events stay in the cache
	RetentionHorizon = 5 * time.Minute
)

// MinuteRate counts the events in [now-1m, now]
func MinuteRate(cache *EventCache, channelID string, now time.Time) int {
	return cache.CountBetween(channelID, now.Add(-RateWindow), now)
}

// FiveMinuteHistogram returns the last five per-minute counts, oldest first,
// left-padded with zeros when fewer have been recorded
func FiveMinuteHistogram(counts []int) [domain.HistoryLen]int {
	var hist [domain.HistoryLen]int
	if len(counts) > domain.HistoryLen {
		counts = counts[len(counts)-domain.HistoryLen:]
	}
	copy(hist[domain.HistoryLen-len(counts):], counts)
	return hist
}
