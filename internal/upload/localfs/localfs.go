package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// Strategy delivers files by copying them on the local filesystem
type Strategy struct {
	logger *zap.Logger
}

// Ensure Strategy implements port.Strategy
var _ port.Strategy = (*Strategy)(nil)

// New creates a new local copy strategy
func New(logger *zap.Logger) *Strategy {
	return &Strategy{logger: logger}
}

// Upload copies the file into destFolder, creating missing directories.
// The copy goes through a temp file and a rename so a failure midway
// never leaves a partial file at the final name.
func (s *Strategy) Upload(ctx context.Context, filePath, destFolder, filename string) (*domain.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination dir: %w", err)
	}

	destPath := filepath.Join(destFolder, filename)
	tempPath := destPath + ".partial"

	if err := s.copyFile(filePath, tempPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to finalize file: %w", err)
	}

	s.logger.Debug("file copied", zap.String("dest", destPath))
	return &domain.UploadResult{
		Status:    domain.StatusSuccess,
		LocalPath: destPath,
	}, nil
}

// copyFile copies src to dst, overwriting dst
func (s *Strategy) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CheckConnection verifies the destination path exists, is a directory
// and is writable.
func (s *Strategy) CheckConnection(_ context.Context, destFolder string) (bool, string) {
	if destFolder == "" {
		return false, "no local destination path configured"
	}

	info, err := os.Stat(destFolder)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("path does not exist: %s", destFolder)
		}
		return false, fmt.Sprintf("cannot access path %s: %v", destFolder, err)
	}
	if !info.IsDir() {
		return false, fmt.Sprintf("path is not a directory: %s", destFolder)
	}

	// Probe writability with a throwaway file
	probe, err := os.CreateTemp(destFolder, ".courier-probe-*")
	if err != nil {
		return false, fmt.Sprintf("path is not writable: %s", destFolder)
	}
	probe.Close()
	os.Remove(probe.Name())

	return true, ""
}
