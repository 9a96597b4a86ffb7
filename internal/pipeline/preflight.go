package pipeline

import (
	"context"
	"fmt"

	"github.com/strmforge/video-courier/internal/upload"
	"go.uber.org/zap"
)

// BinaryCheck probes for the fetch tool's companion binary
type BinaryCheck func() bool

// Preflight validates the environment before a run starts so the
// pipeline can fail fast with one clear message instead of mid-batch.
type Preflight struct {
	registry    *upload.Registry
	binaryCheck BinaryCheck
	logger      *zap.Logger
}

// NewPreflight creates a new pre-flight checker. A nil binaryCheck
// skips the companion-binary probe.
func NewPreflight(registry *upload.Registry, binaryCheck BinaryCheck, logger *zap.Logger) *Preflight {
	return &Preflight{
		registry:    registry,
		binaryCheck: binaryCheck,
		logger:      logger,
	}
}

// Check validates the companion binary and the selected backend's
// connectivity for the chosen destination. On failure the message is
// meant for the caller verbatim.
func (p *Preflight) Check(ctx context.Context, backend, destFolder string) (bool, string) {
	if p.binaryCheck != nil && !p.binaryCheck() {
		return false, "ffmpeg not found on PATH; it is required for downloading best-quality video"
	}

	factory, ok := p.registry.Get(backend)
	if !ok {
		return false, fmt.Sprintf("no strategy registered for backend %q", backend)
	}
	strategy, err := factory()
	if err != nil {
		return false, fmt.Sprintf("failed to construct %q strategy: %v", backend, err)
	}

	ok, message := strategy.CheckConnection(ctx, destFolder)
	if !ok {
		p.logger.Warn("pre-flight check failed",
			zap.String("backend", backend),
			zap.String("reason", message))
	}
	return ok, message
}
