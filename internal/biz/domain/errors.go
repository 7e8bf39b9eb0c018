package domain

import "errors"

var (
	// ErrForbidden means the bot lacks the rights for an action
	ErrForbidden = errors.New("forbidden")

	// ErrNotAuthorized means the invoking member may not change slowmode
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUnknownChannel means the channel no longer exists or is not visible
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrStaleControl means an override control belongs to a superseded report
	ErrStaleControl = errors.New("stale control")

	// ErrSurveyRunning means a survey is already running for the channel
	ErrSurveyRunning = errors.New("survey already running")

	// ErrInvalidPolicy means a policy update violates its bounds
	ErrInvalidPolicy = errors.New("invalid policy")
)
