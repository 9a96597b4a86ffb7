package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
)

// StaticProvider serves a token known at construction time, typically
// loaded from configuration.
type StaticProvider struct {
	token string
}

// Ensure StaticProvider implements port.CredentialProvider
var _ port.CredentialProvider = (*StaticProvider)(nil)

// NewStaticProvider creates a provider for a fixed token
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: token}
}

// Token returns the configured token
func (p *StaticProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", domain.ErrNoCredentials
	}
	return p.token, nil
}

// Invalidate is a no-op for static tokens
func (p *StaticProvider) Invalidate() {}

// tokenFile is the stored token document produced by the OAuth flow
type tokenFile struct {
	AccessToken string `json:"access_token"`
}

// FileProvider reads an access token from a JSON token file and caches
// it for the life of the process. Invalidate drops the cached value so
// a refreshed token file is picked up on the next call.
type FileProvider struct {
	path string

	mu     sync.Mutex
	cached string
}

// Ensure FileProvider implements port.CredentialProvider
var _ port.CredentialProvider = (*FileProvider)(nil)

// NewFileProvider creates a provider backed by a token file
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Token returns the access token from the token file
func (p *FileProvider) Token(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}
	if p.path == "" {
		return "", domain.ErrNoCredentials
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("token file %s: %w", p.path, domain.ErrNoCredentials)
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to parse token file: %w", err)
	}
	if strings.TrimSpace(tf.AccessToken) == "" {
		return "", fmt.Errorf("token file %s has no access_token: %w", p.path, domain.ErrNoCredentials)
	}

	p.cached = tf.AccessToken
	return p.cached, nil
}

// Invalidate discards the cached token
func (p *FileProvider) Invalidate() {
	p.mu.Lock()
	p.cached = ""
	p.mu.Unlock()
}
