package domain

import "path/filepath"

// Result status constants
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Backend name constants
const (
	BackendCloudDrive = "gdrive"
	BackendCloudDisk  = "clouddisk"
	BackendLocal      = "local"
)

// DownloadTask represents a single URL to fetch
type DownloadTask struct {
	URL string
}

// DownloadResult is produced exactly once per DownloadTask.
// On success Path points at the fetched file; on error Path is empty.
type DownloadResult struct {
	Status string
	URL    string
	Path   string
	Error  string
}

// OK returns true if the download succeeded
func (r DownloadResult) OK() bool {
	return r.Status == StatusSuccess
}

// Filename returns the base name of the downloaded file
func (r DownloadResult) Filename() string {
	if r.Path == "" {
		return ""
	}
	return filepath.Base(r.Path)
}

// UploadTask describes one file to deliver to a backend
type UploadTask struct {
	FilePath   string
	Backend    string
	DestFolder string
	Filename   string
}

// UploadTaskFrom builds an UploadTask from a successful download.
// The filename defaults to the downloaded file's own name.
func UploadTaskFrom(dl DownloadResult, backend, destFolder string) UploadTask {
	return UploadTask{
		FilePath:   dl.Path,
		Backend:    backend,
		DestFolder: destFolder,
		Filename:   dl.Filename(),
	}
}

// UploadResult is produced exactly once per upload attempt.
// Exactly one of RemoteURL, RemoteID or LocalPath is set on success,
// depending on the backend.
type UploadResult struct {
	Status    string
	Filename  string
	RemoteURL string
	RemoteID  string
	LocalPath string
	Error     string
}

// OK returns true if the upload succeeded
func (r UploadResult) OK() bool {
	return r.Status == StatusSuccess
}

// FetchRequest is the narrow contract handed to the external fetch tool
type FetchRequest struct {
	URL              string
	TargetDir        string
	Quality          string
	Proxy            string
	FilenameTemplate string
}
