package domain

import (
	"math"
	"time"
)

// SurveyWindow is the default calibration window
const SurveyWindow = 5 * time.Minute

// SurveyResult is the outcome of a calibration survey
type SurveyResult struct {
	GuildID      string
	ChannelID    string
	MessageCount int
	Rate         float64 // Messages per minute over the window
	Target       int
	MinDelay     int
	MaxDelay     int
}

// Calibrate derives a starter target and bounds from the number of messages
// seen during a five minute survey. A channel running at a full message per
// second (60/min) already gets the busy bounds.
func Calibrate(count int) SurveyResult {
	rate := float64(count) / 5

	res := SurveyResult{
		MessageCount: count,
		Rate:         rate,
		Target:       int(math.Floor(rate)),
	}
	switch {
	case rate >= 60:
		res.MinDelay, res.MaxDelay = 2, 10
	case rate > 20:
		res.MinDelay, res.MaxDelay = 0, 10
	default:
		res.MinDelay, res.MaxDelay = 0, 5
	}
	return res
}

// Apply writes the calibrated values into the policy and monitors the channel
func (r SurveyResult) Apply(p *GuildPolicy) {
	p.Target = r.Target
	p.MinDelay = r.MinDelay
	p.MaxDelay = r.MaxDelay
	p.AddChannel(r.ChannelID)
}
