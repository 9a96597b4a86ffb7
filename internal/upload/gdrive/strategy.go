package gdrive

import (
	"context"
	"fmt"
	"strings"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// rootFolderID is the Drive alias for the account's root folder
const rootFolderID = "root"

// Strategy uploads files to a cloud drive backend
type Strategy struct {
	client *Client
	logger *zap.Logger
}

// Ensure Strategy implements port.Strategy
var _ port.Strategy = (*Strategy)(nil)

// New creates a new cloud-drive strategy
func New(client *Client, logger *zap.Logger) *Strategy {
	return &Strategy{client: client, logger: logger}
}

// Upload delivers the file under destFolder, creating the folder chain
// as needed. The remote payload is the file's view link and ID.
func (s *Strategy) Upload(ctx context.Context, filePath, destFolder, filename string) (*domain.UploadResult, error) {
	folderID, err := s.ensureFolderChain(ctx, destFolder)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.client.UploadFile(ctx, folderID, filename, filePath)
	if err != nil {
		return nil, err
	}

	return &domain.UploadResult{
		Status:    domain.StatusSuccess,
		RemoteID:  uploaded.ID,
		RemoteURL: uploaded.WebViewLink,
	}, nil
}

// ensureFolderChain walks the slash-separated destination path from
// the root, descending into each segment and creating it when absent.
// Querying before creating keeps the walk idempotent: re-running the
// same path never produces duplicate folders.
func (s *Strategy) ensureFolderChain(ctx context.Context, destFolder string) (string, error) {
	parentID := rootFolderID
	for _, segment := range strings.Split(strings.Trim(destFolder, "/"), "/") {
		if segment == "" {
			continue
		}

		id, err := s.client.FindFolder(ctx, parentID, segment)
		if err != nil {
			return "", err
		}
		if id != "" {
			s.logger.Debug("found folder", zap.String("name", segment), zap.String("id", id))
			parentID = id
			continue
		}

		s.logger.Info("creating folder", zap.String("name", segment), zap.String("parent", parentID))
		id, err = s.client.CreateFolder(ctx, parentID, segment)
		if err != nil {
			return "", err
		}
		parentID = id
	}
	return parentID, nil
}

// CheckConnection verifies credentials are present and the account
// answers a lightweight info call.
func (s *Strategy) CheckConnection(ctx context.Context, _ string) (bool, string) {
	if err := s.client.About(ctx); err != nil {
		if domain.IsCredentialError(err) {
			return false, fmt.Sprintf("cloud drive credentials missing or rejected: %v", err)
		}
		return false, fmt.Sprintf("cloud drive is unreachable: %v", err)
	}
	return true, ""
}
