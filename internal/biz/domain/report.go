package domain

import (
	"fmt"
	"strings"
	"time"
)

// HistoryLen is the number of per-minute buckets shown in a report
const HistoryLen = 5

// Report is an activity digest for one channel
type Report struct {
	ID            string
	GuildID       string
	ChannelID     string
	DestinationID string
	Current       int // Delay at render time
	Target        int
	MinDelay      int
	MaxDelay      int
	History       [HistoryLen]int // Per-minute counts, oldest first
	Actors        []string        // Distinct actors seen in the last five minutes, sorted
	GeneratedAt   time.Time
}

// CanIncrease checks if the increase control should be enabled
func (r *Report) CanIncrease() bool {
	return r.Current < r.MaxDelay
}

// CanDecrease checks if the decrease control should be enabled
func (r *Report) CanDecrease() bool {
	return r.Current > r.MinDelay
}

// MinuteStamps returns the time each history bucket refers to, oldest first
func (r *Report) MinuteStamps() [HistoryLen]time.Time {
	var stamps [HistoryLen]time.Time
	for i := range stamps {
		stamps[i] = r.GeneratedAt.Add(-time.Duration(HistoryLen-1-i) * time.Minute)
	}
	return stamps
}

// ReportHandle identifies a sent report message
type ReportHandle struct {
	ChannelID string // Channel the report was posted to
	MessageID string
	ReportID  string
	SubjectID string // Monitored channel the report describes
}

// IsZero checks if the handle is unset
func (h ReportHandle) IsZero() bool {
	return h.MessageID == ""
}

const controlPrefix = "slowmode"

// ControlID builds the custom id of an override control.
// Format: slowmode:<direction>:<channel id>:<report id>
func ControlID(d Direction, channelID, reportID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", controlPrefix, d, channelID, reportID)
}

// Control is a decoded override control id
type Control struct {
	Direction Direction
	ChannelID string
	ReportID  string
}

// ParseControlID decodes a custom id built by ControlID
func ParseControlID(id string) (Control, bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[0] != controlPrefix {
		return Control{}, false
	}
	c := Control{
		Direction: Direction(parts[1]),
		ChannelID: parts[2],
		ReportID:  parts[3],
	}
	if !c.Direction.Valid() || c.ChannelID == "" || c.ReportID == "" {
		return Control{}, false
	}
	return c, true
}
