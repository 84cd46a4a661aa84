package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
)

// ServiceConfig holds configuration for the watch service.
type ServiceConfig struct {
	// Repository for watch persistence.
	Repository Repository

	// Engine runs the assessments behind each monitor.
	Engine *risk.Engine

	// Logger for service operations.
	Logger zerolog.Logger

	// DefaultPollEvery applies when a watch does not set its own period.
	DefaultPollEvery time.Duration
}

// Service manages watches and the live monitor each one owns.
type Service struct {
	repo        Repository
	engine      *risk.Engine
	logger      zerolog.Logger
	defaultPoll time.Duration

	mu       sync.Mutex
	monitors map[string]*risk.Monitor
	baseCtx  context.Context
	started  bool
}

// NewService creates a watch service.
func NewService(cfg ServiceConfig) *Service {
	defaultPoll := cfg.DefaultPollEvery
	if defaultPoll == 0 {
		defaultPoll = risk.DefaultPollInterval
	}

	return &Service{
		repo:        cfg.Repository,
		engine:      cfg.Engine,
		logger:      cfg.Logger,
		defaultPoll: defaultPoll,
		monitors:    make(map[string]*risk.Monitor),
	}
}

// Start loads all persisted watches and begins monitoring them. The context
// bounds the lifetime of every monitor started now and later.
func (s *Service) Start(ctx context.Context) error {
	watches, err := s.repo.All(ctx)
	if err != nil {
		return fmt.Errorf("loading watches: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseCtx = ctx
	s.started = true

	for _, w := range watches {
		s.startMonitorLocked(w)
	}

	s.logger.Info().Int("watches", len(watches)).Msg("watch monitoring started")
	return nil
}

// Stop halts every monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	monitors := make([]*risk.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		monitors = append(monitors, m)
	}
	s.monitors = make(map[string]*risk.Monitor)
	s.started = false
	s.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
}

// CreateInput describes a new watch.
type CreateInput struct {
	Label      string
	Plan       route.Plan
	PointCount int
	PollEvery  time.Duration
}

// Create validates, persists and starts monitoring a new watch.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Watch, error) {
	if err := input.Plan.Validate(); err != nil {
		return nil, err
	}

	pollEvery := input.PollEvery
	if pollEvery == 0 {
		pollEvery = s.defaultPoll
	}

	now := time.Now()
	w := &Watch{
		ID:         uuid.NewString(),
		Label:      input.Label,
		Plan:       input.Plan,
		PointCount: input.PointCount,
		PollEvery:  pollEvery,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("creating watch: %w", err)
	}

	s.mu.Lock()
	if s.started {
		s.startMonitorLocked(w)
	}
	s.mu.Unlock()

	s.logger.Info().Str("watch_id", w.ID).Str("label", w.Label).Msg("watch created")
	return w, nil
}

// Get retrieves a watch by ID.
func (s *Service) Get(ctx context.Context, id string) (*Watch, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves watches with pagination.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// Delete stops monitoring and removes a watch.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	monitor := s.monitors[id]
	delete(s.monitors, id)
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting watch: %w", err)
	}

	s.logger.Info().Str("watch_id", id).Msg("watch deleted")
	return nil
}

// Refresh triggers a manual re-evaluation of a watch. A refresh while an
// evaluation is already in flight is a no-op.
func (s *Service) Refresh(ctx context.Context, id string) error {
	s.mu.Lock()
	monitor := s.monitors[id]
	s.mu.Unlock()

	if monitor == nil {
		return ErrWatchNotFound
	}

	monitor.Refresh(ctx)
	return nil
}

// RefreshAll triggers a re-evaluation of every monitored watch.
func (s *Service) RefreshAll(ctx context.Context) int {
	s.mu.Lock()
	monitors := make([]*risk.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		monitors = append(monitors, m)
	}
	s.mu.Unlock()

	for _, m := range monitors {
		m.Refresh(ctx)
	}
	return len(monitors)
}

// Assessment returns the monitor snapshot for a watch: its refresh state,
// last accepted assessment and last error.
func (s *Service) Assessment(id string) (risk.Snapshot, error) {
	s.mu.Lock()
	monitor := s.monitors[id]
	s.mu.Unlock()

	if monitor == nil {
		return risk.Snapshot{}, ErrWatchNotFound
	}

	return monitor.Snapshot(), nil
}

// MonitorCount returns the number of active monitors.
func (s *Service) MonitorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.monitors)
}

func (s *Service) startMonitorLocked(w *Watch) {
	monitor := risk.NewMonitor(risk.MonitorConfig{
		Engine: s.engine,
		Plan:   w.Plan,
		Opts: risk.AssessOptions{
			RouteID:    w.ID,
			PointCount: w.PointCount,
		},
		PollInterval: w.PollEvery,
		Logger:       s.logger.With().Str("watch_id", w.ID).Logger(),
	})

	s.monitors[w.ID] = monitor
	monitor.Start(s.baseCtx)
}
