package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/strmforge/video-courier/internal/domain"
)

// Item kind constants for the run_items table
const (
	itemKindDownload = "download"
	itemKindUpload   = "upload"
)

// SaveRun persists a finished run and its per-item results, replacing
// any previous record for the same ID.
func (s *Store) SaveRun(run *domain.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finishedAt interface{}
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, state, backend, dest_folder, quality, was_cancelled, failure_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			was_cancelled = excluded.was_cancelled,
			failure_reason = excluded.failure_reason,
			finished_at = excluded.finished_at
	`, run.ID, run.State, run.Request.Backend, run.Request.DestFolder, run.Request.Quality,
		boolToInt(run.WasCancelled), run.FailureReason, run.StartedAt.UTC(), finishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM run_items WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear run items: %w", err)
	}

	for _, dl := range run.DownloadResults {
		_, err := tx.Exec(`
			INSERT INTO run_items (run_id, kind, status, url, path, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, itemKindDownload, dl.Status, dl.URL, dl.Path, dl.Error)
		if err != nil {
			return fmt.Errorf("failed to insert download item: %w", err)
		}
	}
	for _, up := range run.UploadResults {
		_, err := tx.Exec(`
			INSERT INTO run_items (run_id, kind, status, filename, remote_url, remote_id, local_path, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, itemKindUpload, up.Status, up.Filename, up.RemoteURL, up.RemoteID, up.LocalPath, up.Error)
		if err != nil {
			return fmt.Errorf("failed to insert upload item: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun loads one run with its per-item results
func (s *Store) GetRun(id string) (*domain.Run, error) {
	run, err := s.scanRun(s.db.QueryRow(`
		SELECT id, state, backend, dest_folder, quality, was_cancelled, failure_reason, started_at, finished_at
		FROM runs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadItems(run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, state, backend, dest_folder, quality, was_cancelled, failure_reason, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := s.loadItems(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun reads one runs row
func (s *Store) scanRun(row scanner) (*domain.Run, error) {
	run := &domain.Run{}
	var wasCancelled int
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &run.State, &run.Request.Backend, &run.Request.DestFolder,
		&run.Request.Quality, &wasCancelled, &run.FailureReason, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.WasCancelled = wasCancelled != 0
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// loadItems attaches per-item results to a run
func (s *Store) loadItems(run *domain.Run) error {
	rows, err := s.db.Query(`
		SELECT kind, status, url, path, filename, remote_url, remote_id, local_path, error
		FROM run_items WHERE run_id = ? ORDER BY id ASC
	`, run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, status, url, path, filename, remoteURL, remoteID, localPath, errMsg string
		if err := rows.Scan(&kind, &status, &url, &path, &filename, &remoteURL, &remoteID, &localPath, &errMsg); err != nil {
			return err
		}

		switch kind {
		case itemKindDownload:
			run.DownloadResults = append(run.DownloadResults, domain.DownloadResult{
				Status: status,
				URL:    url,
				Path:   path,
				Error:  errMsg,
			})
		case itemKindUpload:
			run.UploadResults = append(run.UploadResults, domain.UploadResult{
				Status:    status,
				Filename:  filename,
				RemoteURL: remoteURL,
				RemoteID:  remoteID,
				LocalPath: localPath,
				Error:     errMsg,
			})
		}
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
