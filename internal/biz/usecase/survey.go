package usecase

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Survey passively counts human messages in a channel for domain.SurveyWindow,
// then calibrates the guild policy from the observed rate and starts monitoring
// the channel. Only one survey per channel may run at a time.
func (uc *SlowmodeUsecase) Survey(ctx context.Context, guildID, channelID string) (*domain.SurveyResult, error) {
	run, err := uc.PrepareSurvey(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// SurveyFunc completes a prepared survey
type SurveyFunc func(ctx context.Context) (*domain.SurveyResult, error)

// PrepareSurvey takes the channel's survey lock and starts counting messages.
// The returned function waits out the window and must be called exactly once.
func (uc *SlowmodeUsecase) PrepareSurvey(ctx context.Context, guildID, channelID string) (SurveyFunc, error) {
	release, err := uc.surveyLock.Acquire(ctx, channelID)
	if err != nil {
		surveysTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	counter := uc.openTap(channelID)
	uc.logger.Info("survey started", "guild", guildID, "channel", channelID, "window", domain.SurveyWindow)

	return func(ctx context.Context) (*domain.SurveyResult, error) {
		defer release()
		defer uc.closeTap(channelID)
		return uc.finishSurvey(ctx, guildID, channelID, counter)
	}, nil
}

func (uc *SlowmodeUsecase) finishSurvey(ctx context.Context, guildID, channelID string, counter *atomic.Int64) (*domain.SurveyResult, error) {
	if err := uc.surveyWait(ctx, domain.SurveyWindow); err != nil {
		surveysTotal.WithLabelValues("canceled").Inc()
		uc.logger.Info("survey canceled", "guild", guildID, "channel", channelID)
		return nil, err
	}

	result := domain.Calibrate(int(counter.Load()))
	result.GuildID = guildID
	result.ChannelID = channelID

	policy, err := uc.policyRepo.Get(ctx, guildID)
	if err != nil {
		surveysTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	result.Apply(policy)
	if err := uc.policyRepo.Save(ctx, policy); err != nil {
		surveysTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	surveysTotal.WithLabelValues("completed").Inc()
	uc.logger.Info("survey completed", "guild", guildID, "channel", channelID,
		"messages", result.MessageCount, "rate", result.Rate,
		"target", result.Target, "min", result.MinDelay, "max", result.MaxDelay)

	if policy.HasReportDestination() {
		if err := uc.channelRepo.SendText(ctx, policy.ReportChannelID, FormatSurveyResult(result)); err != nil {
			uc.logger.Warn("failed to post survey result", "guild", guildID, "err", err)
		}
	}
	return &result, nil
}

// FormatSurveyResult renders a survey result as a plain notice
func FormatSurveyResult(r domain.SurveyResult) string {
	return fmt.Sprintf("Survey of <#%s> finished: %s %s in %s (%.1f/min).\n"+
		"Target set to %d messages/min, slowmode bounds %d-%ds.",
		r.ChannelID,
		humanize.Comma(int64(r.MessageCount)),
		english.PluralWord(r.MessageCount, "message", ""),
		english.Plural(int(domain.SurveyWindow.Minutes()), "minute", ""),
		r.Rate, r.Target, r.MinDelay, r.MaxDelay)
}

// SurveyRunning checks if a survey is counting messages in the channel
func (uc *SlowmodeUsecase) SurveyRunning(channelID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	_, ok := uc.taps[channelID]
	return ok
}

func (uc *SlowmodeUsecase) openTap(channelID string) *atomic.Int64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	counter := new(atomic.Int64)
	uc.taps[channelID] = counter
	return counter
}

func (uc *SlowmodeUsecase) closeTap(channelID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.taps, channelID)
}

// tapSurvey counts a human message toward a running survey
func (uc *SlowmodeUsecase) tapSurvey(channelID string) {
	uc.mu.Lock()
	counter, ok := uc.taps[channelID]
	uc.mu.Unlock()
	if ok {
		counter.Add(1)
	}
}
