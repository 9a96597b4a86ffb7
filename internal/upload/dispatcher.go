package upload

import (
	"context"
	"fmt"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// Dispatcher is the single entry point for executing upload tasks. It
// selects a strategy by backend name and normalizes every failure into
// an error-status result; callers rely on result-based error handling
// exclusively.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

// Ensure Dispatcher implements port.Dispatcher
var _ port.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a new upload dispatcher
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch executes one upload task
func (d *Dispatcher) Dispatch(ctx context.Context, task domain.UploadTask) domain.UploadResult {
	result, err := d.dispatch(ctx, task)
	if err != nil {
		d.logger.Error("upload failed",
			zap.String("backend", task.Backend),
			zap.String("filename", task.Filename),
			zap.Error(err))
		return errorResult(task, err)
	}

	d.logger.Info("file uploaded",
		zap.String("backend", task.Backend),
		zap.String("filename", task.Filename))
	result.Filename = task.Filename
	return *result
}

// dispatch resolves the strategy and runs the upload, keeping the
// error classification intact for wrapping layers.
func (d *Dispatcher) dispatch(ctx context.Context, task domain.UploadTask) (*domain.UploadResult, error) {
	factory, ok := d.registry.Get(task.Backend)
	if !ok {
		return nil, fmt.Errorf("no strategy registered for backend %q: %w",
			task.Backend, domain.ErrUnknownBackend)
	}

	strategy, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to construct %q strategy: %w", task.Backend, err)
	}

	result, err := strategy.Upload(ctx, task.FilePath, task.DestFolder, task.Filename)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// errorResult builds the normalized error result for a failed task
func errorResult(task domain.UploadTask, err error) domain.UploadResult {
	return domain.UploadResult{
		Status:   domain.StatusError,
		Filename: task.Filename,
		Error:    err.Error(),
	}
}
