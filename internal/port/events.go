package port

import "github.com/strmforge/video-courier/internal/domain"

// Events is the contract between a running pipeline and its front-end.
//
// Progress and Error may fire many times; Error is informational and
// non-fatal. Finished fires exactly once and is terminal.
type Events interface {
	Progress(percent int, message string)
	Error(message string)
	Finished(downloads []domain.DownloadResult, uploads []domain.UploadResult, wasCancelled bool)
}
