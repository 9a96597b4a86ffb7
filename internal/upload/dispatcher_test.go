package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// fakeStrategy implements port.Strategy for testing
type fakeStrategy struct {
	mu          sync.Mutex
	uploadCalls int
	uploadErrs  []error
	result      *domain.UploadResult
	connOK      bool
	connMsg     string
}

func (f *fakeStrategy) Upload(_ context.Context, filePath, destFolder, filename string) (*domain.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.uploadCalls
	f.uploadCalls++
	if call < len(f.uploadErrs) && f.uploadErrs[call] != nil {
		return nil, f.uploadErrs[call]
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.UploadResult{Status: domain.StatusSuccess, RemoteURL: "https://remote/" + filename}, nil
}

func (f *fakeStrategy) CheckConnection(_ context.Context, _ string) (bool, string) {
	return f.connOK, f.connMsg
}

func (f *fakeStrategy) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls
}

func registryWith(t *testing.T, backend string, strategy port.Strategy) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Register(backend, func() (port.Strategy, error) {
		return strategy, nil
	})
	return r
}

func TestDispatcher_UnknownBackend(t *testing.T) {
	d := NewDispatcher(NewRegistry(), zap.NewNop())

	result := d.Dispatch(context.Background(), domain.UploadTask{
		Backend:  "dropbox",
		Filename: "clip.mp4",
	})

	if result.Status != domain.StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if result.Filename != "clip.mp4" {
		t.Errorf("Filename = %v, want clip.mp4", result.Filename)
	}
	if !strings.Contains(result.Error, "dropbox") {
		t.Errorf("Error = %q, want it to name the backend", result.Error)
	}
}

func TestDispatcher_Success(t *testing.T) {
	strategy := &fakeStrategy{}
	d := NewDispatcher(registryWith(t, "fake", strategy), zap.NewNop())

	result := d.Dispatch(context.Background(), domain.UploadTask{
		Backend:  "fake",
		FilePath: "/tmp/clip.mp4",
		Filename: "clip.mp4",
	})

	if !result.OK() {
		t.Fatalf("Status = %v, want success (%s)", result.Status, result.Error)
	}
	if result.Filename != "clip.mp4" {
		t.Errorf("Filename = %v", result.Filename)
	}
	if result.RemoteURL != "https://remote/clip.mp4" {
		t.Errorf("RemoteURL = %v", result.RemoteURL)
	}
}

func TestDispatcher_StrategyErrorNormalized(t *testing.T) {
	strategy := &fakeStrategy{uploadErrs: []error{errors.New("disk full")}}
	d := NewDispatcher(registryWith(t, "fake", strategy), zap.NewNop())

	result := d.Dispatch(context.Background(), domain.UploadTask{
		Backend:  "fake",
		Filename: "clip.mp4",
	})

	if result.Status != domain.StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !strings.Contains(result.Error, "disk full") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestDispatcher_FactoryErrorNormalized(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", func() (port.Strategy, error) {
		return nil, errors.New("no token configured")
	})
	d := NewDispatcher(r, zap.NewNop())

	result := d.Dispatch(context.Background(), domain.UploadTask{Backend: "broken", Filename: "a.mp4"})

	if result.Status != domain.StatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if !strings.Contains(result.Error, "no token configured") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestRegistry_Backends(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func() (port.Strategy, error) { return &fakeStrategy{}, nil })
	r.Register("b", func() (port.Strategy, error) { return &fakeStrategy{}, nil })

	names := r.Backends()
	if len(names) != 2 {
		t.Fatalf("Backends() returned %d names, want 2", len(names))
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) unexpectedly found")
	}
}
