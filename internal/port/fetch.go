package port

import (
	"context"

	"github.com/strmforge/video-courier/internal/domain"
)

// Fetcher defines the contract with the external video fetch tool.
// Fetch never returns a Go error for expected failure modes (network
// error, unavailable video); these become an error-status result.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest) domain.DownloadResult
}
