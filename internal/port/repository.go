package port

import "github.com/strmforge/video-courier/internal/domain"

// RunRepository persists finished pipeline runs and their per-item
// results for the history API.
type RunRepository interface {
	SaveRun(run *domain.Run) error
	GetRun(id string) (*domain.Run, error)
	ListRuns(limit int) ([]*domain.Run, error)
	Close() error
}
