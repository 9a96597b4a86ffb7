package upload

import (
	"context"
	"errors"
	"time"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// RetryConfig tunes the retry decorator
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default retry tuning
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryDispatcher decorates a Dispatcher with per-item retry and
// exponential backoff. Strategies stay retry-free; the policy lives
// entirely in this wrapping layer. Credential failures and
// cancellation are never retried.
type RetryDispatcher struct {
	inner  *Dispatcher
	config *RetryConfig
	logger *zap.Logger
}

// Ensure RetryDispatcher implements port.Dispatcher
var _ port.Dispatcher = (*RetryDispatcher)(nil)

// NewRetryDispatcher wraps a dispatcher with retry behavior
func NewRetryDispatcher(inner *Dispatcher, config *RetryConfig, logger *zap.Logger) *RetryDispatcher {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = 2 * time.Second
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}
	return &RetryDispatcher{inner: inner, config: config, logger: logger}
}

// Dispatch executes one upload task, retrying transient failures
func (d *RetryDispatcher) Dispatch(ctx context.Context, task domain.UploadTask) domain.UploadResult {
	var lastErr error
	delay := d.config.InitialDelay

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			d.logger.Info("retrying upload",
				zap.String("filename", task.Filename),
				zap.Int("attempt", attempt),
				zap.Duration("after", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errorResult(task, ctx.Err())
			}
			delay = time.Duration(float64(delay) * d.config.Multiplier)
		}

		result, err := d.inner.dispatch(ctx, task)
		if err == nil {
			result.Filename = task.Filename
			d.logger.Info("file uploaded",
				zap.String("backend", task.Backend),
				zap.String("filename", task.Filename))
			return *result
		}
		lastErr = err

		if !retryable(ctx, err) {
			break
		}
		d.logger.Warn("upload attempt failed",
			zap.String("filename", task.Filename),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	d.logger.Error("upload failed",
		zap.String("backend", task.Backend),
		zap.String("filename", task.Filename),
		zap.Error(lastErr))
	return errorResult(task, lastErr)
}

// retryable reports whether another attempt may succeed
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if domain.IsCredentialError(err) {
		return false
	}
	// An unknown backend won't fix itself
	if errors.Is(err, domain.ErrUnknownBackend) {
		return false
	}
	return true
}
