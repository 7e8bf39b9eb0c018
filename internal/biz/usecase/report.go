package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// reportGuild publishes a report for every monitored channel of a guild
func (uc *SlowmodeUsecase) reportGuild(ctx context.Context, p *domain.GuildPolicy, now time.Time) {
	if !p.HasReportDestination() {
		uc.logger.Debug("no report destination, skipping reports", "guild", p.GuildID)
		return
	}

	for _, channelID := range p.Channels {
		if ctx.Err() != nil {
			return
		}
		if err := uc.reportChannel(ctx, p, channelID, now); err != nil {
			reportsTotal.WithLabelValues("error").Inc()
			uc.logger.Warn("failed to publish report", "guild", p.GuildID, "channel", channelID, "err", err)
		}
	}
}

// reportChannel replaces the channel's live report with a fresh one.
// The previous report's controls are disabled before the new report is sent.
func (uc *SlowmodeUsecase) reportChannel(ctx context.Context, p *domain.GuildPolicy, channelID string, now time.Time) error {
	current, err := uc.channelRepo.GetDelay(ctx, channelID)
	if err != nil {
		writeErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return fmt.Errorf("failed to read slowmode: %w", err)
	}

	report := uc.BuildReport(p, channelID, current, now)

	if prev := uc.retireLive(channelID); !prev.IsZero() {
		if err := uc.channelRepo.DisableReport(ctx, prev); err != nil {
			uc.logger.Debug("failed to disable previous report", "channel", channelID, "message", prev.MessageID, "err", err)
		}
	}

	handle, err := uc.channelRepo.SendReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	uc.mu.Lock()
	st := uc.state(p.GuildID, channelID)
	st.live = report
	st.handle = handle
	uc.mu.Unlock()

	reportsTotal.WithLabelValues("sent").Inc()

	if uc.mirror != nil {
		if err := uc.mirror.MirrorReport(ctx, report); err != nil {
			uc.logger.Warn("failed to mirror report", "channel", channelID, "err", err)
		}
	}
	return nil
}

// BuildReport renders the report for a channel from the controller's state
func (uc *SlowmodeUsecase) BuildReport(p *domain.GuildPolicy, channelID string, current int, now time.Time) *domain.Report {
	uc.mu.Lock()
	var history [domain.HistoryLen]int
	if st, ok := uc.states[channelID]; ok {
		history = FiveMinuteHistogram(st.counts)
	}
	uc.mu.Unlock()

	return &domain.Report{
		ID:            uc.newReportID(),
		GuildID:       p.GuildID,
		ChannelID:     channelID,
		DestinationID: p.ReportChannelID,
		Current:       current,
		Target:        p.Target,
		MinDelay:      p.MinDelay,
		MaxDelay:      p.MaxDelay,
		History:       history,
		Actors:        uc.cache.ActorsSince(channelID, now.Add(-RetentionHorizon)),
		GeneratedAt:   now,
	}
}

// retireLive clears the channel's live report and returns its handle
func (uc *SlowmodeUsecase) retireLive(channelID string) domain.ReportHandle {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st, ok := uc.states[channelID]
	if !ok {
		return domain.ReportHandle{}
	}
	prev := st.handle
	st.live = nil
	st.handle = domain.ReportHandle{}
	return prev
}

// LiveReport returns a copy of the channel's live report, nil if none
func (uc *SlowmodeUsecase) LiveReport(channelID string) *domain.Report {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st, ok := uc.states[channelID]
	if !ok || st.live == nil {
		return nil
	}
	r := *st.live
	return &r
}
