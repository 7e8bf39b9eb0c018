package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "slowmode_tick_duration_seconds",
	Help:    "Duration of controller sweeps",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})

// Ticker runs one controller sweep
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// SlowmodeScheduler drives the controller on a fixed interval
type SlowmodeScheduler struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSlowmodeScheduler creates a new slowmode scheduler
func NewSlowmodeScheduler(ticker Ticker, interval time.Duration, logger *slog.Logger) *SlowmodeScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlowmodeScheduler{
		ticker:   ticker,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start starts the scheduler
func (s *SlowmodeScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("started", "interval", s.interval)
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *SlowmodeScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("stopped")
}

// tickLoop is the controller loop.
// Sweeps never overlap: a sweep slower than the interval delays the next one.
func (s *SlowmodeScheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.runTick(now)
		}
	}
}

func (s *SlowmodeScheduler) runTick(now time.Time) {
	start := time.Now()
	err := s.ticker.Tick(s.ctx, now)
	tickDuration.Observe(time.Since(start).Seconds())

	if err != nil && s.ctx.Err() == nil {
		s.logger.Error("sweep failed", "err", err)
	}
}
