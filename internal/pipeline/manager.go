package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// Manager runs pipelines on behalf of front-ends: it assigns run IDs,
// performs the pre-flight check, tracks active runs, relays
// cancellation and persists finished runs to the history repository.
type Manager struct {
	pipeline  *Pipeline
	preflight *Preflight
	repo      port.RunRepository
	logger    *zap.Logger

	mu   sync.Mutex
	runs map[string]*activeRun
}

type activeRun struct {
	run  *domain.Run
	flag *CancelFlag
}

// NewManager creates a new run manager. The repository may be nil, in
// which case finished runs are not persisted.
func NewManager(pipeline *Pipeline, preflight *Preflight, repo port.RunRepository, logger *zap.Logger) *Manager {
	return &Manager{
		pipeline:  pipeline,
		preflight: preflight,
		repo:      repo,
		logger:    logger,
		runs:      make(map[string]*activeRun),
	}
}

// Start validates the request, runs the pre-flight check and launches
// the pipeline in the background. The returned run is a snapshot.
func (m *Manager) Start(ctx context.Context, req domain.RunRequest) (*domain.Run, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("at least one URL is required: %w", domain.ErrInvalidInput)
	}
	if req.Backend == "" {
		return nil, fmt.Errorf("backend is required: %w", domain.ErrInvalidInput)
	}

	if ok, message := m.preflight.Check(ctx, req.Backend, req.DestFolder); !ok {
		return nil, fmt.Errorf("%s: %w", message, domain.ErrPreflightFailed)
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		State:     domain.RunStateRunning,
		Request:   req,
		Progress:  0,
		StartedAt: time.Now(),
	}
	active := &activeRun{run: run, flag: NewCancelFlag()}

	m.mu.Lock()
	m.runs[run.ID] = active
	m.mu.Unlock()

	m.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("backend", req.Backend),
		zap.Int("urls", len(req.URLs)))

	go m.execute(active)

	return m.snapshot(run.ID)
}

// Cancel requests cancellation of an active run. Idempotent while the
// run is active.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	active, ok := m.runs[id]
	m.mu.Unlock()

	if !ok {
		return domain.ErrRunNotFound
	}

	m.mu.Lock()
	finished := active.run.Finished()
	m.mu.Unlock()
	if finished {
		return domain.ErrRunNotActive
	}

	m.logger.Info("cancellation requested", zap.String("run_id", id))
	active.flag.Set()
	return nil
}

// Get returns a snapshot of a run, falling back to the history
// repository for runs no longer held in memory.
func (m *Manager) Get(id string) (*domain.Run, error) {
	if run, err := m.snapshot(id); err == nil {
		return run, nil
	}
	if m.repo != nil {
		return m.repo.GetRun(id)
	}
	return nil, domain.ErrRunNotFound
}

// List returns finished runs from the history repository
func (m *Manager) List(limit int) ([]*domain.Run, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.ListRuns(limit)
}

// execute drives one pipeline run to completion
func (m *Manager) execute(active *activeRun) {
	events := &managedEvents{manager: m, run: active.run, logger: m.logger}

	err := m.pipeline.Run(context.Background(), active.run.Request, active.flag, events)
	if err != nil {
		// Setup failure: no finished event was emitted
		m.mu.Lock()
		active.run.State = domain.RunStateFailed
		active.run.FailureReason = err.Error()
		now := time.Now()
		active.run.FinishedAt = &now
		m.mu.Unlock()

		m.logger.Error("run failed during setup",
			zap.String("run_id", active.run.ID),
			zap.Error(err))
	}

	m.persist(active.run)
}

// persist stores a finished run in the history repository
func (m *Manager) persist(run *domain.Run) {
	if m.repo == nil {
		return
	}
	snapshot, err := m.snapshot(run.ID)
	if err != nil {
		return
	}
	if err := m.repo.SaveRun(snapshot); err != nil {
		m.logger.Error("failed to persist run",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
}

// snapshot copies a tracked run under the lock
func (m *Manager) snapshot(id string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	copied := *active.run
	copied.DownloadResults = append([]domain.DownloadResult(nil), active.run.DownloadResults...)
	copied.UploadResults = append([]domain.UploadResult(nil), active.run.UploadResults...)
	return &copied, nil
}

// managedEvents updates the tracked run as the pipeline reports
type managedEvents struct {
	manager *Manager
	run     *domain.Run
	logger  *zap.Logger
}

// Ensure managedEvents implements port.Events
var _ port.Events = (*managedEvents)(nil)

func (e *managedEvents) Progress(percent int, message string) {
	e.manager.mu.Lock()
	e.run.Progress = percent
	e.run.Message = message
	e.manager.mu.Unlock()
}

func (e *managedEvents) Error(message string) {
	e.logger.Warn("run item error",
		zap.String("run_id", e.run.ID),
		zap.String("error", message))

	e.manager.mu.Lock()
	e.run.Message = message
	e.manager.mu.Unlock()
}

func (e *managedEvents) Finished(downloads []domain.DownloadResult, uploads []domain.UploadResult, wasCancelled bool) {
	now := time.Now()

	e.manager.mu.Lock()
	e.run.DownloadResults = downloads
	e.run.UploadResults = uploads
	e.run.WasCancelled = wasCancelled
	e.run.FinishedAt = &now
	if wasCancelled {
		e.run.State = domain.RunStateCancelled
		e.run.Message = "cancelled"
	} else {
		e.run.State = domain.RunStateCompleted
		e.run.Message = "completed"
	}
	e.manager.mu.Unlock()

	e.logger.Info("run finished",
		zap.String("run_id", e.run.ID),
		zap.Bool("cancelled", wasCancelled),
		zap.Int("downloads", len(downloads)),
		zap.Int("uploads", len(uploads)))
}
