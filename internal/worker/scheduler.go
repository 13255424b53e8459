package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/log"
)

// DefaultInterval is how often the scheduler scans when none is configured.
const DefaultInterval = time.Hour

// Scanner publishes reminders for renewals due relative to now.
// *services.ReminderService implements it.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (int, error)
}

// RenewalScheduler runs a renewal scan at startup and then on every tick.
type RenewalScheduler struct {
	scanner  Scanner
	refresh  func(context.Context) error
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewRenewalScheduler creates a scheduler. refresh, when not nil, runs
// before every scan so a separate process sees the latest snapshot.
func NewRenewalScheduler(scanner Scanner, refresh func(context.Context) error, interval time.Duration, logger *log.Logger) *RenewalScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RenewalScheduler{
		scanner:  scanner,
		refresh:  refresh,
		interval: interval,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// RunOnce refreshes and scans a single time.
func (s *RenewalScheduler) RunOnce(ctx context.Context) (int, error) {
	if s.refresh != nil {
		if err := s.refresh(ctx); err != nil {
			return 0, fmt.Errorf("refresh subscriptions: %w", err)
		}
	}
	return s.scanner.Scan(ctx, s.now())
}

// Run blocks until ctx is cancelled. A failed scan is logged and retried on
// the next tick.
func (s *RenewalScheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Renewal scheduler started",
		log.FieldOperation, log.OpStartup,
		"interval", s.interval.String())

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Renewal scheduler stopped", log.FieldOperation, log.OpShutdown)
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *RenewalScheduler) tick(ctx context.Context) {
	count, err := s.RunOnce(ctx)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return
	case err != nil:
		s.logger.ErrorContext(ctx, "Renewal scan failed",
			log.FieldOperation, log.OpScan,
			log.FieldCount, count,
			log.FieldError, err)
	default:
		s.logger.InfoContext(ctx, "Renewal scan complete",
			log.FieldOperation, log.OpScan,
			log.FieldCount, count,
			"next_check", s.now().Add(s.interval).Format("15:04:05"))
	}
}
