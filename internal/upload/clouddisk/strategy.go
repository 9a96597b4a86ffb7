package clouddisk

import (
	"context"
	"fmt"
	"strings"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// Strategy uploads files to a cloud disk backend
type Strategy struct {
	client *Client
	logger *zap.Logger
}

// Ensure Strategy implements port.Strategy
var _ port.Strategy = (*Strategy)(nil)

// New creates a new cloud-disk strategy
func New(client *Client, logger *zap.Logger) *Strategy {
	return &Strategy{client: client, logger: logger}
}

// Upload delivers the file under destFolder, creating the folder chain
// as needed. The remote payload is a download link for the file.
func (s *Strategy) Upload(ctx context.Context, filePath, destFolder, filename string) (*domain.UploadResult, error) {
	folderPath, err := s.ensureFolderChain(ctx, destFolder)
	if err != nil {
		return nil, err
	}

	remotePath := folderPath + "/" + filename
	if err := s.client.Upload(ctx, filePath, remotePath); err != nil {
		return nil, err
	}

	href, err := s.client.DownloadLink(ctx, remotePath)
	if err != nil {
		// The file landed but the link call failed; still an error per
		// the upload contract, since the payload would be stale.
		return nil, err
	}

	return &domain.UploadResult{
		Status:    domain.StatusSuccess,
		RemoteURL: href,
	}, nil
}

// ensureFolderChain creates each missing segment of the destination
// path, querying before creating so the walk stays idempotent.
func (s *Strategy) ensureFolderChain(ctx context.Context, destFolder string) (string, error) {
	current := ""
	for _, segment := range strings.Split(strings.Trim(destFolder, "/"), "/") {
		if segment == "" {
			continue
		}
		current = current + "/" + segment

		exists, err := s.client.Exists(ctx, current)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		s.logger.Info("creating folder", zap.String("path", current))
		if err := s.client.Mkdir(ctx, current); err != nil {
			return "", err
		}
	}
	if current == "" {
		// Root of the disk
		return "", nil
	}
	return current, nil
}

// CheckConnection verifies the stored token is present and valid
func (s *Strategy) CheckConnection(ctx context.Context, _ string) (bool, string) {
	if err := s.client.CheckToken(ctx); err != nil {
		if domain.IsCredentialError(err) {
			return false, fmt.Sprintf("cloud disk token missing or invalid: %v", err)
		}
		return false, fmt.Sprintf("cloud disk is unreachable: %v", err)
	}
	return true, ""
}
