package usecase

import (
	"context"
	"fmt"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// OverrideRequest is a press of a report control
type OverrideRequest struct {
	GuildID           string
	ActorID           string
	Control           domain.Control
	CanManageChannels bool // Invoking member may manage the monitored channel
}

// OverrideResult describes the outcome of an override
type OverrideResult struct {
	ChannelID string
	Previous  int
	Current   int
}

// Changed checks if the override wrote a new delay
func (r *OverrideResult) Changed() bool {
	return r.Previous != r.Current
}

// Override steps a channel's delay by one second in the requested direction.
// Bounds come from the live report the control belongs to.
func (uc *SlowmodeUsecase) Override(ctx context.Context, req OverrideRequest) (*OverrideResult, error) {
	channelID := req.Control.ChannelID

	if !req.CanManageChannels {
		overridesTotal.WithLabelValues("forbidden").Inc()
		uc.logger.Info("override rejected, missing permission", "guild", req.GuildID, "channel", channelID, "actor", req.ActorID)
		return nil, domain.ErrNotAuthorized
	}

	live := uc.LiveReport(channelID)
	if live == nil || live.ID != req.Control.ReportID || live.GuildID != req.GuildID {
		overridesTotal.WithLabelValues("stale").Inc()
		return nil, domain.ErrStaleControl
	}

	current, err := uc.channelRepo.GetDelay(ctx, channelID)
	if err != nil {
		overridesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read slowmode: %w", err)
	}

	result := &OverrideResult{ChannelID: channelID, Previous: current, Current: current}
	next := domain.StepDelay(req.Control.Direction, current, live.MinDelay, live.MaxDelay)
	if next == current {
		overridesTotal.WithLabelValues("at_bound").Inc()
		return result, nil
	}

	reason := fmt.Sprintf("Manual %s via report control", req.Control.Direction)
	if err := uc.channelRepo.SetDelay(ctx, channelID, next, reason); err != nil {
		overridesTotal.WithLabelValues("error").Inc()
		writeErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return nil, fmt.Errorf("failed to set slowmode: %w", err)
	}

	result.Current = next
	overridesTotal.WithLabelValues("applied").Inc()
	uc.logger.Info("override applied", "guild", req.GuildID, "channel", channelID,
		"actor", req.ActorID, "from", current, "to", next)
	return result, nil
}
