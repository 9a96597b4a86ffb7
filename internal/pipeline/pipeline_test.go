package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/strmforge/video-courier/internal/domain"
	"go.uber.org/zap"
)

// fakeFetcher returns a success or failure per URL without touching
// the network. A non-nil block channel makes every fetch hang until
// the context is cancelled.
type fakeFetcher struct {
	mu      sync.Mutex
	failFor map[string]bool
	block   chan struct{}
	started chan struct{} // closed once the first fetch begins
	once    sync.Once
}

func (f *fakeFetcher) Fetch(ctx context.Context, req domain.FetchRequest) domain.DownloadResult {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.DownloadResult{Status: domain.StatusError, URL: req.URL, Error: ctx.Err().Error()}
		}
	}

	f.mu.Lock()
	fail := f.failFor[req.URL]
	f.mu.Unlock()

	if fail {
		return domain.DownloadResult{Status: domain.StatusError, URL: req.URL, Error: "fetch failed"}
	}
	name := filepath.Base(req.URL) + ".mp4"
	return domain.DownloadResult{
		Status: domain.StatusSuccess,
		URL:    req.URL,
		Path:   filepath.Join(req.TargetDir, name),
	}
}

// fakeDispatcher records dispatched tasks in order
type fakeDispatcher struct {
	mu      sync.Mutex
	tasks   []domain.UploadTask
	failFor map[string]bool
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task domain.UploadTask) domain.UploadResult {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	fail := d.failFor[task.Filename]
	d.mu.Unlock()

	if fail {
		return domain.UploadResult{Status: domain.StatusError, Filename: task.Filename, Error: "upload failed"}
	}
	return domain.UploadResult{Status: domain.StatusSuccess, Filename: task.Filename}
}

func (d *fakeDispatcher) dispatched() []domain.UploadTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.UploadTask(nil), d.tasks...)
}

// recordingEvents captures the full event stream of a run
type recordingEvents struct {
	mu        sync.Mutex
	progress  []int
	messages  []string
	errors    []string
	finished  int
	downloads []domain.DownloadResult
	uploads   []domain.UploadResult
	cancelled bool
}

func (e *recordingEvents) Progress(percent int, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = append(e.progress, percent)
	e.messages = append(e.messages, message)
}

func (e *recordingEvents) Error(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, message)
}

func (e *recordingEvents) Finished(downloads []domain.DownloadResult, uploads []domain.UploadResult, wasCancelled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished++
	e.downloads = downloads
	e.uploads = uploads
	e.cancelled = wasCancelled
}

func (e *recordingEvents) snapshot() *recordingEvents {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &recordingEvents{
		progress:  append([]int(nil), e.progress...),
		messages:  append([]string(nil), e.messages...),
		errors:    append([]string(nil), e.errors...),
		finished:  e.finished,
		downloads: e.downloads,
		uploads:   e.uploads,
		cancelled: e.cancelled,
	}
}

func testConfig() *Config {
	return &Config{CancelPollInterval: 5 * time.Millisecond, QueueCapacity: 4}
}

func TestRun_EmptyURLs(t *testing.T) {
	p := New(testConfig(), &fakeFetcher{}, &fakeDispatcher{}, zap.NewNop())

	err := p.Run(context.Background(), domain.RunRequest{Backend: domain.BackendLocal}, NewCancelFlag(), &recordingEvents{})
	if err == nil {
		t.Fatal("Run() error = nil, want setup error")
	}
	if !domain.IsSetupError(err) {
		t.Errorf("error %v is not a setup error", err)
	}
}

func TestRun_AllSucceed(t *testing.T) {
	urls := []string{"https://v.example/a", "https://v.example/b", "https://v.example/c"}
	dispatcher := &fakeDispatcher{}
	p := New(testConfig(), &fakeFetcher{}, dispatcher, zap.NewNop())
	events := &recordingEvents{}

	err := p.Run(context.Background(), domain.RunRequest{
		URLs:       urls,
		Backend:    domain.BackendCloudDrive,
		DestFolder: "Videos/2024",
	}, NewCancelFlag(), events)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := events.snapshot()
	if got.finished != 1 {
		t.Fatalf("finished events = %d, want exactly 1", got.finished)
	}
	if got.cancelled {
		t.Error("run reported as cancelled")
	}
	if len(got.downloads) != len(urls) {
		t.Errorf("download results = %d, want %d", len(got.downloads), len(urls))
	}
	if len(got.uploads) != len(urls) {
		t.Errorf("upload results = %d, want %d", len(got.uploads), len(urls))
	}
	if len(got.errors) != 0 {
		t.Errorf("error events = %v, want none", got.errors)
	}

	// Uploads happen in download order
	tasks := dispatcher.dispatched()
	for i, task := range tasks {
		if want := filepath.Base(urls[i]) + ".mp4"; task.Filename != want {
			t.Errorf("upload %d filename = %q, want %q", i, task.Filename, want)
		}
		if task.DestFolder != "Videos/2024" {
			t.Errorf("upload %d dest = %q, want Videos/2024", i, task.DestFolder)
		}
	}
}

func TestRun_ProgressShape(t *testing.T) {
	urls := []string{"https://v.example/a", "https://v.example/b"}
	p := New(testConfig(), &fakeFetcher{}, &fakeDispatcher{}, zap.NewNop())
	events := &recordingEvents{}

	if err := p.Run(context.Background(), domain.RunRequest{
		URLs:    urls,
		Backend: domain.BackendCloudDrive,
	}, NewCancelFlag(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := events.snapshot()
	if len(got.progress) == 0 {
		t.Fatal("no progress events")
	}
	for i, pct := range got.progress {
		if pct < 0 || pct > 100 {
			t.Errorf("progress %d = %d, out of range", i, pct)
		}
		if pct == 100 && i != len(got.progress)-1 {
			t.Errorf("progress hit 100 before the final event (index %d)", i)
		}
	}
	if last := got.progress[len(got.progress)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestRun_FailedDownloadIsNonFatal(t *testing.T) {
	urls := []string{"https://v.example/good", "https://v.example/bad", "https://v.example/good2"}
	fetcher := &fakeFetcher{failFor: map[string]bool{"https://v.example/bad": true}}
	dispatcher := &fakeDispatcher{}
	p := New(testConfig(), fetcher, dispatcher, zap.NewNop())
	events := &recordingEvents{}

	if err := p.Run(context.Background(), domain.RunRequest{
		URLs:    urls,
		Backend: domain.BackendCloudDrive,
	}, NewCancelFlag(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := events.snapshot()
	if got.finished != 1 {
		t.Fatalf("finished events = %d, want 1", got.finished)
	}
	if len(got.downloads) != 3 {
		t.Errorf("download results = %d, want 3 (failures included)", len(got.downloads))
	}
	if len(got.uploads) != 2 {
		t.Errorf("upload results = %d, want 2 (failed download never uploaded)", len(got.uploads))
	}
	if len(got.errors) != 1 || !strings.Contains(got.errors[0], "https://v.example/bad") {
		t.Errorf("error events = %v, want one naming the failed URL", got.errors)
	}
	if len(dispatcher.dispatched()) != 2 {
		t.Errorf("dispatched tasks = %d, want 2", len(dispatcher.dispatched()))
	}
}

func TestRun_FailedUploadIsNonFatal(t *testing.T) {
	urls := []string{"https://v.example/a", "https://v.example/b"}
	dispatcher := &fakeDispatcher{failFor: map[string]bool{"a.mp4": true}}
	p := New(testConfig(), &fakeFetcher{}, dispatcher, zap.NewNop())
	events := &recordingEvents{}

	if err := p.Run(context.Background(), domain.RunRequest{
		URLs:    urls,
		Backend: domain.BackendCloudDrive,
	}, NewCancelFlag(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := events.snapshot()
	if len(got.uploads) != 2 {
		t.Fatalf("upload results = %d, want 2 (failures included)", len(got.uploads))
	}
	if len(got.errors) != 1 {
		t.Errorf("error events = %v, want one for the failed upload", got.errors)
	}
}

func TestRun_LocalOnlySkipsUploads(t *testing.T) {
	dest := t.TempDir()
	dispatcher := &fakeDispatcher{}
	p := New(testConfig(), &fakeFetcher{}, dispatcher, zap.NewNop())
	events := &recordingEvents{}

	if err := p.Run(context.Background(), domain.RunRequest{
		URLs:       []string{"https://v.example/a"},
		Backend:    domain.BackendLocal,
		DestFolder: dest,
	}, NewCancelFlag(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := events.snapshot()
	if len(got.downloads) != 1 {
		t.Errorf("download results = %d, want 1", len(got.downloads))
	}
	if len(got.uploads) != 0 {
		t.Errorf("upload results = %d, want 0 in local mode", len(got.uploads))
	}
	if len(dispatcher.dispatched()) != 0 {
		t.Errorf("dispatcher called %d times in local mode", len(dispatcher.dispatched()))
	}
	// Downloads land directly in the destination in local mode
	if got.downloads[0].Path != filepath.Join(dest, "a.mp4") {
		t.Errorf("download path = %q, want inside %q", got.downloads[0].Path, dest)
	}
}

func TestRun_Cancellation(t *testing.T) {
	fetcher := &fakeFetcher{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	p := New(testConfig(), fetcher, &fakeDispatcher{}, zap.NewNop())
	events := &recordingEvents{}
	flag := NewCancelFlag()

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), domain.RunRequest{
			URLs:    []string{"https://v.example/a", "https://v.example/b"},
			Backend: domain.BackendCloudDrive,
		}, flag, events)
	}()

	<-fetcher.started
	flag.Set()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	got := events.snapshot()
	if got.finished != 1 {
		t.Fatalf("finished events = %d, want exactly 1", got.finished)
	}
	if !got.cancelled {
		t.Error("finished event did not report cancellation")
	}
	if got.downloads != nil || got.uploads != nil {
		t.Error("cancelled run carried result lists")
	}
	for _, pct := range got.progress {
		if pct == 100 {
			t.Error("cancelled run reported 100 percent")
		}
	}
}

func TestCancelFlag(t *testing.T) {
	flag := NewCancelFlag()
	if flag.IsSet() {
		t.Error("new flag is already set")
	}
	flag.Set()
	if !flag.IsSet() {
		t.Error("flag not set after Set()")
	}
}
