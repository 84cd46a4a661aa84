package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/watch"
)

// RefreshJob re-assesses every persisted watch so cached assessments stay
// warm even when no API instance is polling them.
type RefreshJob struct {
	config     RefreshConfig
	logger     zerolog.Logger
	repository watch.Repository
	engine     *risk.Engine

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns            int64
	SuccessfulRefreshes  int64
	FailedRefreshes      int64
	SyntheticAssessments int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Logger     zerolog.Logger
	Repository watch.Repository
	Engine     *risk.Engine
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:     cfg.Config.withDefaults(),
		logger:     cfg.Logger,
		repository: cfg.Repository,
		engine:     cfg.Engine,
		metrics:    &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalWatches int
	Successful   int
	Failed       int
	Synthetic    int
	Errors       []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	WatchID string
	Label   string
	Error   string
}

// Run executes the refresh job for all persisted watches.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{StartTime: startTime}

	watches, err := j.repository.All(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("loading watches for refresh failed")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		result.Errors = append(result.Errors, RefreshError{Error: err.Error()})
		return result
	}
	result.TotalWatches = len(watches)

	j.logger.Info().
		Int("watches", len(watches)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting watch refresh job")

	watchesChan := make(chan *watch.Watch, len(watches))
	resultsChan := make(chan watchResult, len(watches))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, watchesChan, resultsChan)
		}()
	}

	for _, w := range watches {
		watchesChan <- w
	}
	close(watchesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for wr := range resultsChan {
		if wr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				WatchID: wr.watchID,
				Label:   wr.label,
				Error:   wr.err.Error(),
			})
			continue
		}
		result.Successful++
		if wr.synthetic {
			result.Synthetic++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("synthetic", result.Synthetic).
		Msg("watch refresh job completed")

	return result
}

type watchResult struct {
	watchID   string
	label     string
	synthetic bool
	err       error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, watches <-chan *watch.Watch, results chan<- watchResult) {
	for w := range watches {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshWatch(ctx, w)
		}
	}
}

func (j *RefreshJob) refreshWatch(ctx context.Context, w *watch.Watch) watchResult {
	assessCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	assessment, err := j.engine.AssessRoute(assessCtx, w.Plan, risk.AssessOptions{
		RouteID:     w.ID,
		PointCount:  w.PointCount,
		BypassCache: true,
	})
	if err != nil {
		return watchResult{watchID: w.ID, label: w.Label, err: err}
	}

	return watchResult{watchID: w.ID, label: w.Label, synthetic: assessment.Synthetic}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefreshes += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.SyntheticAssessments += int64(result.Synthetic)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:            j.metrics.TotalRuns,
		SuccessfulRefreshes:  j.metrics.SuccessfulRefreshes,
		FailedRefreshes:      j.metrics.FailedRefreshes,
		SyntheticAssessments: j.metrics.SyntheticAssessments,
		LastRunAt:            j.metrics.LastRunAt,
		LastRunDuration:      j.metrics.LastRunDuration,
		TotalDuration:        j.metrics.TotalDuration,
	}
}
