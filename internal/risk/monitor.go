package risk

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/route"
)

// State of a monitor's refresh cycle.
type State string

const (
	StateIdle    State = "IDLE"
	StateLoading State = "LOADING"
	StateReady   State = "READY"
	StateError   State = "ERROR"
)

// Polling period bounds.
const (
	MinPollInterval     = 5 * time.Minute
	MaxPollInterval     = 10 * time.Minute
	DefaultPollInterval = 5 * time.Minute
)

// MonitorConfig holds settings for a route monitor.
type MonitorConfig struct {
	// Engine runs the assessments.
	Engine *Engine

	// Plan is the monitored route.
	Plan route.Plan

	// Opts are passed to every assessment run. BypassCache is forced on so
	// polls re-evaluate instead of reading their own previous result.
	Opts AssessOptions

	// PollInterval between automatic refreshes, clamped to [5m, 10m].
	// Zero uses the default.
	PollInterval time.Duration

	// Logger for monitor operations.
	Logger zerolog.Logger
}

// Snapshot is a consistent read of the monitor's state. The assessment is
// the last accepted result and stays visible through later failed runs.
type Snapshot struct {
	State      State
	Assessment *RouteAssessment
	Err        error
	UpdatedAt  time.Time
}

// Monitor keeps one route's assessment fresh: an immediate evaluation on
// start, then fixed-period polling, plus manual refresh triggers. Runs are
// sequence numbered; a run that finishes after a newer run has already been
// accepted is discarded, so overlapping refreshes can never roll the visible
// assessment backwards.
type Monitor struct {
	engine       *Engine
	plan         route.Plan
	opts         AssessOptions
	pollInterval time.Duration
	logger       zerolog.Logger

	mu          sync.Mutex
	state       State
	assessment  *RouteAssessment
	err         error
	updatedAt   time.Time
	nextSeq     uint64
	acceptedSeq uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor in the Idle state.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.PollInterval
	switch {
	case interval == 0:
		interval = DefaultPollInterval
	case interval < MinPollInterval:
		interval = MinPollInterval
	case interval > MaxPollInterval:
		interval = MaxPollInterval
	}

	opts := cfg.Opts
	opts.BypassCache = true

	return &Monitor{
		engine:       cfg.Engine,
		plan:         cfg.Plan,
		opts:         opts,
		pollInterval: interval,
		logger:       cfg.Logger,
		state:        StateIdle,
	}
}

// Start triggers an immediate evaluation and begins polling. Calling Start
// on a started monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.loop(runCtx)
	}()
}

func (m *Monitor) loop(ctx context.Context) {
	m.runOnce(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

// Refresh triggers a manual evaluation. While a run is already in flight
// this is a no-op: the in-flight run completes and its result stands.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateLoading {
		m.mu.Unlock()
		m.logger.Debug().Msg("refresh ignored, evaluation already in flight")
		return
	}
	m.mu.Unlock()

	go m.runOnce(ctx)
}

func (m *Monitor) runOnce(ctx context.Context) {
	m.mu.Lock()
	m.nextSeq++
	seq := m.nextSeq
	m.state = StateLoading
	m.mu.Unlock()

	assessment, err := m.engine.AssessRoute(ctx, m.plan, m.opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A newer run already finished; this result is stale.
	if seq < m.acceptedSeq {
		m.logger.Debug().
			Uint64("seq", seq).
			Uint64("accepted", m.acceptedSeq).
			Msg("discarding stale evaluation result")
		return
	}
	m.acceptedSeq = seq
	m.updatedAt = time.Now()

	if err != nil {
		m.err = err
		m.state = StateError
		m.logger.Error().Err(err).Msg("route evaluation failed")
		return
	}

	m.assessment = assessment
	m.err = nil
	m.state = StateReady
}

// Snapshot returns the monitor's current state, last accepted assessment
// and last error.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:      m.state,
		Assessment: m.assessment,
		Err:        m.err,
		UpdatedAt:  m.updatedAt,
	}
}

// Stop cancels polling and waits for the loop to exit. In-flight HTTP calls
// are allowed to finish; their late results are discarded by sequence.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
