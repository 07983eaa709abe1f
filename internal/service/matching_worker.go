package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/rs/zerolog"
)

// MatchingWorker periodically runs the automatic matching pass for every
// active forecast. The engine itself stays request-driven; the worker is
// just another caller of the orchestrator.
type MatchingWorker struct {
	orchestrator *ForecastOrchestrator
	forecastRepo domain.ForecastRepository
	logger       zerolog.Logger
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	mu           sync.Mutex
	running      bool
}

// MatchingWorkerConfig holds configuration for the matching worker
type MatchingWorkerConfig struct {
	Interval time.Duration // How often to sweep all active forecasts
}

// DefaultMatchingWorkerConfig returns sensible defaults
func DefaultMatchingWorkerConfig() MatchingWorkerConfig {
	return MatchingWorkerConfig{
		Interval: 1 * time.Hour,
	}
}

// NewMatchingWorker creates a new matching worker
func NewMatchingWorker(
	orchestrator *ForecastOrchestrator,
	forecastRepo domain.ForecastRepository,
	logger zerolog.Logger,
	config MatchingWorkerConfig,
) *MatchingWorker {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}

	return &MatchingWorker{
		orchestrator: orchestrator,
		forecastRepo: forecastRepo,
		logger:       logger.With().Str("component", "matching_worker").Logger(),
		interval:     config.Interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background matching sweep
func (w *MatchingWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting matching worker")

	go w.run(ctx)
}

// Stop gracefully stops the matching worker
func (w *MatchingWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping matching worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Matching worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *MatchingWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// run is the main loop for the matching worker
func (w *MatchingWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MatchingWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// sweep runs the matching pass for all active forecasts
func (w *MatchingWorker) sweep(ctx context.Context) {
	w.logger.Debug().Msg("Starting matching sweep")
	startTime := time.Now()

	forecasts, err := w.forecastRepo.GetAllActive()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list active forecasts")
		return
	}

	totalMatches := 0
	totalErrors := 0
	skipped := 0

	for _, forecast := range forecasts {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping sweep")
			return
		default:
		}

		matches, err := w.orchestrator.RunMatching(forecast.WorkspaceID, forecast.ID)
		if err != nil {
			if errors.Is(err, domain.ErrAutoMatchDisabled) {
				skipped++
				continue
			}
			w.logger.Error().
				Err(err).
				Int32("workspace_id", forecast.WorkspaceID).
				Int32("forecast_id", forecast.ID).
				Msg("Matching pass failed for forecast")
			totalErrors++
			continue
		}
		totalMatches += matches
	}

	w.logger.Info().
		Int("forecasts", len(forecasts)).
		Int("new_matches", totalMatches).
		Int("skipped", skipped).
		Int("errors", totalErrors).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed matching sweep")
}
