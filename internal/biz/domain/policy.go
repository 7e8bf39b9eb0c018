package domain

import (
	"fmt"
	"slices"
)

// Default policy values, applied to guilds that have never been configured
const (
	DefaultMinDelay = 0
	DefaultMaxDelay = 120
	DefaultTarget   = 20

	// MaxSlowmode is the largest per-user delay the platform accepts (6 hours)
	MaxSlowmode = 21600
)

// GuildPolicy is the per-guild adaptive slowmode configuration
type GuildPolicy struct {
	GuildID         string
	Enabled         bool
	MinDelay        int      // Lower bound for the channel delay (seconds)
	MaxDelay        int      // Upper bound for the channel delay (seconds)
	Target          int      // Target messages per minute
	Channels        []string // Monitored channel IDs
	ReportChannelID string   // Destination for activity reports, empty to disable
}

// DefaultGuildPolicy returns the policy used for unconfigured guilds
func DefaultGuildPolicy(guildID string) *GuildPolicy {
	return &GuildPolicy{
		GuildID:  guildID,
		MinDelay: DefaultMinDelay,
		MaxDelay: DefaultMaxDelay,
		Target:   DefaultTarget,
	}
}

// Monitors checks if the channel is in the monitored set
func (p *GuildPolicy) Monitors(channelID string) bool {
	return slices.Contains(p.Channels, channelID)
}

// AddChannel adds a channel to the monitored set, returns false if already present
func (p *GuildPolicy) AddChannel(channelID string) bool {
	if p.Monitors(channelID) {
		return false
	}
	p.Channels = append(p.Channels, channelID)
	return true
}

// RemoveChannel removes a channel from the monitored set, returns false if absent
func (p *GuildPolicy) RemoveChannel(channelID string) bool {
	i := slices.Index(p.Channels, channelID)
	if i < 0 {
		return false
	}
	p.Channels = slices.Delete(p.Channels, i, i+1)
	return true
}

// HasReportDestination checks if reports should be sent for this guild
func (p *GuildPolicy) HasReportDestination() bool {
	return p.ReportChannelID != ""
}

// Clone returns a deep copy
func (p *GuildPolicy) Clone() *GuildPolicy {
	c := *p
	c.Channels = slices.Clone(p.Channels)
	return &c
}

// Validate checks the policy bounds
func (p *GuildPolicy) Validate() error {
	switch {
	case p.MinDelay < 0:
		return fmt.Errorf("%w: min delay must not be negative", ErrInvalidPolicy)
	case p.MaxDelay < p.MinDelay:
		return fmt.Errorf("%w: max delay must not be below min delay", ErrInvalidPolicy)
	case p.MaxDelay > MaxSlowmode:
		return fmt.Errorf("%w: max delay must not exceed %d", ErrInvalidPolicy, MaxSlowmode)
	case p.Target < 0:
		return fmt.Errorf("%w: target must not be negative", ErrInvalidPolicy)
	}
	return nil
}
