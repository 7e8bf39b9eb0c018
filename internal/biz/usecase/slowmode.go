package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/google/uuid"
)

const adjustReason = "Adjusting slowmode based on current channel activity"

// ControllerConfig contains controller configuration
type ControllerConfig struct {
	ReportEvery   int // Report every N ticks
	CacheCapacity int // Max cached events per channel
}

// DefaultControllerConfig returns default controller configuration
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		ReportEvery:   5,
		CacheCapacity: DefaultCacheCapacity,
	}
}

// MessageEvent is a message notification from the event feed
type MessageEvent struct {
	GuildID   string
	ChannelID string
	ActorID   string
	At        time.Time
	IsHuman   bool
}

// channelState is the controller's view of one monitored channel
type channelState struct {
	guildID string
	counts  []int // Per-minute counts recorded each tick, oldest first
	live    *domain.Report
	handle  domain.ReportHandle
}

// SlowmodeUsecase owns the event cache and runs the adaptive slowmode loop
type SlowmodeUsecase struct {
	policyRepo  repo.PolicyRepo
	channelRepo repo.ChannelRepo
	mirror      repo.ReportMirror // optional
	surveyLock  repo.SurveyLock
	config      ControllerConfig
	logger      *slog.Logger

	cache *EventCache

	mu     sync.Mutex
	states map[string]*channelState
	taps   map[string]*atomic.Int64 // Survey counters by channel
	ticks  int

	newReportID func() string
	surveyWait  func(ctx context.Context, d time.Duration) error
}

// NewSlowmodeUsecase creates a new slowmode usecase
func NewSlowmodeUsecase(
	policyRepo repo.PolicyRepo,
	channelRepo repo.ChannelRepo,
	mirror repo.ReportMirror,
	surveyLock repo.SurveyLock,
	config ControllerConfig,
	logger *slog.Logger,
) *SlowmodeUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ReportEvery <= 0 {
		config.ReportEvery = DefaultControllerConfig().ReportEvery
	}
	return &SlowmodeUsecase{
		policyRepo:  policyRepo,
		channelRepo: channelRepo,
		mirror:      mirror,
		surveyLock:  surveyLock,
		config:      config,
		logger:      logger.With("component", "slowmode"),
		cache:       NewEventCache(config.CacheCapacity),
		states:      make(map[string]*channelState),
		taps:        make(map[string]*atomic.Int64),
		newReportID: uuid.NewString,
		surveyWait:  sleepContext,
	}
}

// Cache returns the event cache
func (uc *SlowmodeUsecase) Cache() *EventCache {
	return uc.cache
}

// Ingest records a message event if it comes from a human in a monitored channel
func (uc *SlowmodeUsecase) Ingest(ctx context.Context, ev MessageEvent) {
	if !ev.IsHuman || ev.GuildID == "" {
		return
	}
	uc.tapSurvey(ev.ChannelID)

	policy, err := uc.policyRepo.Get(ctx, ev.GuildID)
	if err != nil {
		uc.logger.Warn("failed to load policy for message", "guild", ev.GuildID, "err", err)
		return
	}
	if !policy.Enabled || !policy.Monitors(ev.ChannelID) {
		return
	}

	uc.cache.Record(ev.ChannelID, ev.At, ev.ActorID)
	eventsIngested.Inc()
}

// Tick runs one controller sweep over every monitored channel of every enabled guild.
// Every ReportEvery ticks it also publishes activity reports.
func (uc *SlowmodeUsecase) Tick(ctx context.Context, now time.Time) error {
	policies, err := uc.policyRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled policies: %w", err)
	}

	active := make(map[string]bool)
	for _, p := range policies {
		for _, channelID := range p.Channels {
			if err := ctx.Err(); err != nil {
				return err
			}
			active[channelID] = true
			uc.adjustChannel(ctx, p, channelID, now)
		}
	}
	uc.prune(active)
	ticksTotal.Inc()

	if !uc.advanceTick() {
		return nil
	}
	for _, p := range policies {
		if err := ctx.Err(); err != nil {
			return err
		}
		uc.reportGuild(ctx, p, now)
	}
	return nil
}

// adjustChannel applies the controller policy to one channel
func (uc *SlowmodeUsecase) adjustChannel(ctx context.Context, p *domain.GuildPolicy, channelID string, now time.Time) {
	uc.cache.EvictOlderThan(channelID, now, RetentionHorizon)
	rate := MinuteRate(uc.cache, channelID, now)
	uc.recordCount(p.GuildID, channelID, rate)

	current, err := uc.channelRepo.GetDelay(ctx, channelID)
	if err != nil {
		writeErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		uc.logger.Warn("failed to read slowmode", "guild", p.GuildID, "channel", channelID, "err", err)
		return
	}

	next := domain.NextDelay(rate, p.Target, current, p.MinDelay, p.MaxDelay)
	if next == current {
		uc.logger.Debug("holding slowmode", "channel", channelID, "rate", rate, "target", p.Target, "delay", current)
		return
	}

	if err := uc.channelRepo.SetDelay(ctx, channelID, next, adjustReason); err != nil {
		writeErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		uc.logger.Warn("failed to adjust slowmode", "guild", p.GuildID, "channel", channelID, "delay", next, "err", err)
		return
	}

	direction := domain.DirectionIncrease
	if next < current {
		direction = domain.DirectionDecrease
	}
	adjustmentsTotal.WithLabelValues(string(direction)).Inc()
	uc.logger.Info("adjusted slowmode", "guild", p.GuildID, "channel", channelID,
		"rate", rate, "target", p.Target, "from", current, "to", next)
}

// advanceTick bumps the report counter and reports whether this tick should report
func (uc *SlowmodeUsecase) advanceTick() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.ticks++
	if uc.ticks < uc.config.ReportEvery {
		return false
	}
	uc.ticks = 0
	return true
}

// state returns the channel state, creating it if needed. Caller holds uc.mu.
func (uc *SlowmodeUsecase) state(guildID, channelID string) *channelState {
	st, ok := uc.states[channelID]
	if !ok {
		st = &channelState{guildID: guildID}
		uc.states[channelID] = st
	}
	return st
}

// recordCount appends a per-minute count to the channel's history
func (uc *SlowmodeUsecase) recordCount(guildID, channelID string, count int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st := uc.state(guildID, channelID)
	st.counts = append(st.counts, count)
	if over := len(st.counts) - domain.HistoryLen; over > 0 {
		st.counts = st.counts[over:]
	}
}

// prune discards the state of channels no longer monitored by an enabled guild
func (uc *SlowmodeUsecase) prune(active map[string]bool) {
	uc.mu.Lock()
	var stale []string
	for channelID := range uc.states {
		if !active[channelID] {
			stale = append(stale, channelID)
		}
	}
	for _, channelID := range stale {
		delete(uc.states, channelID)
	}
	uc.mu.Unlock()

	for _, channelID := range uc.cache.Channels() {
		if !active[channelID] && !slices.Contains(stale, channelID) {
			stale = append(stale, channelID)
		}
	}

	for _, channelID := range stale {
		uc.cache.Forget(channelID)
		uc.logger.Info("stopped monitoring channel", "channel", channelID)
	}
}

// ChannelStatus is a snapshot of one monitored channel
type ChannelStatus struct {
	ChannelID     string                 `json:"channel_id"`
	History       [domain.HistoryLen]int `json:"history"`
	CachedEvents  int                    `json:"cached_events"`
	LiveReportID  string                 `json:"live_report_id,omitempty"`
	SurveyRunning bool                   `json:"survey_running"`
}

// Status returns a snapshot of every monitored channel of a guild
func (uc *SlowmodeUsecase) Status(ctx context.Context, guildID string) ([]ChannelStatus, error) {
	policy, err := uc.policyRepo.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}

	result := make([]ChannelStatus, 0, len(policy.Channels))
	for _, channelID := range policy.Channels {
		s := ChannelStatus{
			ChannelID:     channelID,
			CachedEvents:  uc.cache.Len(channelID),
			SurveyRunning: uc.SurveyRunning(channelID),
		}
		uc.mu.Lock()
		if st, ok := uc.states[channelID]; ok {
			s.History = FiveMinuteHistogram(st.counts)
			if st.live != nil {
				s.LiveReportID = st.live.ID
			}
		}
		uc.mu.Unlock()
		result = append(result, s)
	}
	return result, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrUnknownChannel):
		return "unknown_channel"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
