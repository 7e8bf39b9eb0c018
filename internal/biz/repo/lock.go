package repo

import "context"

// SurveyLock guards against concurrent surveys of the same channel
type SurveyLock interface {
	// Acquire takes the lock for a channel
	// Returns domain.ErrSurveyRunning if it is already held
	Acquire(ctx context.Context, channelID string) (release func(), err error)
}
