package domain

import "time"

// Run state constants
const (
	RunStateIdle      = "idle"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateCancelled = "cancelled"
	RunStateFailed    = "failed"
)

// RunRequest is the caller-supplied input for one pipeline run
type RunRequest struct {
	URLs             []string
	Backend          string
	DestFolder       string
	Quality          string
	Proxy            string
	FilenameTemplate string
}

// LocalOnly returns true if the destination is the local filesystem.
// Local-only runs have no upload stage: the download result is the
// final result.
func (r RunRequest) LocalOnly() bool {
	return r.Backend == BackendLocal
}

// Run is the aggregate of one pipeline invocation
type Run struct {
	ID      string
	State   string
	Request RunRequest

	Progress int
	Message  string

	DownloadResults []DownloadResult
	UploadResults   []UploadResult
	WasCancelled    bool
	FailureReason   string

	StartedAt  time.Time
	FinishedAt *time.Time
}

// Finished returns true if the run reached a terminal state
func (r *Run) Finished() bool {
	switch r.State {
	case RunStateCompleted, RunStateCancelled, RunStateFailed:
		return true
	}
	return false
}

// SuccessfulDownloads counts download results with success status
func (r *Run) SuccessfulDownloads() int {
	n := 0
	for _, d := range r.DownloadResults {
		if d.OK() {
			n++
		}
	}
	return n
}

// SuccessfulUploads counts upload results with success status
func (r *Run) SuccessfulUploads() int {
	n := 0
	for _, u := range r.UploadResults {
		if u.OK() {
			n++
		}
	}
	return n
}
