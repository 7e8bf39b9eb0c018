package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
)

// SurveyPreparer starts calibration surveys
type SurveyPreparer interface {
	PrepareSurvey(ctx context.Context, guildID, channelID string) (usecase.SurveyFunc, error)
}

// SurveyRunner runs calibration surveys in the background
type SurveyRunner struct {
	preparer SurveyPreparer
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSurveyRunner creates a new survey runner
func NewSurveyRunner(preparer SurveyPreparer, logger *slog.Logger) *SurveyRunner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SurveyRunner{
		preparer: preparer,
		logger:   logger.With("component", "survey"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins a survey and returns once it is counting.
// Returns domain.ErrSurveyRunning if the channel is already being surveyed.
func (r *SurveyRunner) Start(guildID, channelID string) error {
	run, err := r.preparer.PrepareSurvey(r.ctx, guildID, channelID)
	if err != nil {
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := run(r.ctx); err != nil && r.ctx.Err() == nil {
			r.logger.Error("survey failed", "guild", guildID, "channel", channelID, "err", err)
		}
	}()
	return nil
}

// Stop cancels running surveys and waits for them to exit
func (r *SurveyRunner) Stop() {
	r.cancel()
	r.wg.Wait()
}
