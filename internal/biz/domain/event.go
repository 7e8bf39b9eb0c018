package domain

import "time"

// Event is a single observed human message in a monitored channel
type Event struct {
	At      time.Time
	ActorID string
}

// IsBefore checks if the event happened before t
func (e Event) IsBefore(t time.Time) bool {
	return e.At.Before(t)
}
