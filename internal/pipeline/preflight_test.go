package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"github.com/strmforge/video-courier/internal/upload"
	"go.uber.org/zap"
)

// connStrategy is a strategy stub whose connection check is canned
type connStrategy struct {
	ok      bool
	message string
}

func (s *connStrategy) Upload(_ context.Context, _, _, _ string) (*domain.UploadResult, error) {
	return &domain.UploadResult{Status: domain.StatusSuccess}, nil
}

func (s *connStrategy) CheckConnection(_ context.Context, _ string) (bool, string) {
	return s.ok, s.message
}

func registryWithConn(t *testing.T, backend string, strategy port.Strategy) *upload.Registry {
	t.Helper()
	r := upload.NewRegistry()
	r.Register(backend, func() (port.Strategy, error) { return strategy, nil })
	return r
}

func TestPreflight_AllChecksPass(t *testing.T) {
	r := registryWithConn(t, "gdrive", &connStrategy{ok: true})
	p := NewPreflight(r, func() bool { return true }, zap.NewNop())

	ok, msg := p.Check(context.Background(), "gdrive", "Videos")
	if !ok {
		t.Errorf("Check() = false (%s), want true", msg)
	}
}

func TestPreflight_MissingBinary(t *testing.T) {
	r := registryWithConn(t, "gdrive", &connStrategy{ok: true})
	p := NewPreflight(r, func() bool { return false }, zap.NewNop())

	ok, msg := p.Check(context.Background(), "gdrive", "Videos")
	if ok {
		t.Fatal("Check() = true, want false with the binary missing")
	}
	if !strings.Contains(msg, "ffmpeg") {
		t.Errorf("message %q does not mention ffmpeg", msg)
	}
}

func TestPreflight_NilBinaryCheckSkipsProbe(t *testing.T) {
	r := registryWithConn(t, "gdrive", &connStrategy{ok: true})
	p := NewPreflight(r, nil, zap.NewNop())

	if ok, msg := p.Check(context.Background(), "gdrive", "Videos"); !ok {
		t.Errorf("Check() = false (%s), want true with probe disabled", msg)
	}
}

func TestPreflight_UnknownBackend(t *testing.T) {
	p := NewPreflight(upload.NewRegistry(), nil, zap.NewNop())

	ok, msg := p.Check(context.Background(), "dropbox", "Videos")
	if ok {
		t.Fatal("Check() = true, want false for an unregistered backend")
	}
	if !strings.Contains(msg, "dropbox") {
		t.Errorf("message %q does not name the backend", msg)
	}
}

func TestPreflight_FactoryError(t *testing.T) {
	r := upload.NewRegistry()
	r.Register("gdrive", func() (port.Strategy, error) {
		return nil, errors.New("token file unreadable")
	})
	p := NewPreflight(r, nil, zap.NewNop())

	ok, msg := p.Check(context.Background(), "gdrive", "Videos")
	if ok {
		t.Fatal("Check() = true, want false when the strategy cannot be built")
	}
	if !strings.Contains(msg, "token file unreadable") {
		t.Errorf("message %q does not carry the factory error", msg)
	}
}

func TestPreflight_ConnectionFailed(t *testing.T) {
	r := registryWithConn(t, "gdrive", &connStrategy{ok: false, message: "credentials rejected"})
	p := NewPreflight(r, nil, zap.NewNop())

	ok, msg := p.Check(context.Background(), "gdrive", "Videos")
	if ok {
		t.Fatal("Check() = true, want false when the backend is unreachable")
	}
	if msg != "credentials rejected" {
		t.Errorf("message = %q, want the strategy's message verbatim", msg)
	}
}
