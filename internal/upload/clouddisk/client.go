package clouddisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
)

const defaultAPIBase = "https://cloud-api.yandex.net/v1/disk"

// Client is a minimal disk REST client covering the token probe,
// folder management and the two-step upload (get href, PUT data).
type Client struct {
	httpClient *http.Client
	creds      port.CredentialProvider
	apiBase    string
}

// NewClient creates a new disk client
func NewClient(creds port.CredentialProvider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		creds:      creds,
		apiBase:    defaultAPIBase,
	}
}

// SetBaseURL overrides the API endpoint, used in tests
func (c *Client) SetBaseURL(apiBase string) {
	c.apiBase = apiBase
}

// link is the href document returned by upload/download link calls
type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

// CheckToken verifies the stored token against the disk-info call
func (c *Client) CheckToken(ctx context.Context) error {
	req, err := c.newRequest(ctx, "GET", c.apiBase, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Exists reports whether a resource exists at the given disk path
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	u := c.apiBase + "/resources?path=" + url.QueryEscape(path) + "&fields=path"
	req, err := c.newRequest(ctx, "GET", u, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized:
		c.creds.Invalidate()
		return false, fmt.Errorf("disk API rejected token: %w", domain.ErrInvalidCredentials)
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("disk API error: %s (status: %d)", string(body), resp.StatusCode)
	}
}

// Mkdir creates a single folder at the given disk path
func (c *Client) Mkdir(ctx context.Context, path string) error {
	u := c.apiBase + "/resources?path=" + url.QueryEscape(path)
	req, err := c.newRequest(ctx, "PUT", u, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("mkdir %q failed: %w", path, err)
	}
	return nil
}

// Upload pushes a local file to the given disk path, overwriting any
// existing file. The transfer is a two-step exchange: request an
// upload href, then PUT the data to it.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) error {
	u := c.apiBase + "/resources/upload?path=" + url.QueryEscape(remotePath) + "&overwrite=true"
	req, err := c.newRequest(ctx, "GET", u, nil)
	if err != nil {
		return err
	}

	var uploadLink link
	if err := c.do(req, &uploadLink); err != nil {
		return fmt.Errorf("failed to get upload link: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	putReq, err := http.NewRequestWithContext(ctx, "PUT", uploadLink.Href, f)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if info, err := f.Stat(); err == nil {
		putReq.ContentLength = info.Size()
	}

	resp, err := c.httpClient.Do(putReq)
	if err != nil {
		return fmt.Errorf("upload transfer failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload transfer failed: %s (status: %d)", string(body), resp.StatusCode)
	}
	return nil
}

// DownloadLink returns a public download href for a disk path
func (c *Client) DownloadLink(ctx context.Context, remotePath string) (string, error) {
	u := c.apiBase + "/resources/download?path=" + url.QueryEscape(remotePath)
	req, err := c.newRequest(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}

	var dl link
	if err := c.do(req, &dl); err != nil {
		return "", fmt.Errorf("failed to get download link: %w", err)
	}
	return dl.Href, nil
}

// newRequest builds an authorized request
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)
	return req, nil
}

// do executes a request and decodes the JSON response into out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.creds.Invalidate()
		return fmt.Errorf("disk API rejected token: %w", domain.ErrInvalidCredentials)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("disk API error: %s (status: %d)", string(body), resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
