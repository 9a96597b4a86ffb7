package port

import (
	"context"

	"github.com/strmforge/video-courier/internal/domain"
)

// Strategy implements the upload capability for one backend.
//
// Upload must create any missing intermediate destination folders and
// overwrite-or-create at the final name. A failure midway must surface
// as an error, never a success result with a stale payload.
type Strategy interface {
	// Upload delivers a local file to destFolder/filename on the backend
	Upload(ctx context.Context, filePath, destFolder, filename string) (*domain.UploadResult, error)

	// CheckConnection verifies the backend is reachable and destFolder
	// is writable. The message is empty when ok is true.
	CheckConnection(ctx context.Context, destFolder string) (ok bool, message string)
}

// Dispatcher executes one upload task against the strategy registered
// for its backend. Dispatch never panics and never returns a Go error;
// all failures are normalized into an error-status result.
type Dispatcher interface {
	Dispatch(ctx context.Context, task domain.UploadTask) domain.UploadResult
}

// CredentialProvider supplies a backend access token. Implementations
// may cache; Invalidate discards any cached value so the next Token
// call re-acquires it.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}
