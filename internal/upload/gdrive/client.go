package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"time"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
)

const (
	defaultAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultUploadBase = "https://www.googleapis.com/upload/drive/v3"

	folderMimeType = "application/vnd.google-apps.folder"
)

// Client is a minimal Drive REST client covering folder lookup,
// folder creation, file upload and the account-info probe.
type Client struct {
	httpClient *http.Client
	creds      port.CredentialProvider
	apiBase    string
	uploadBase string
}

// NewClient creates a new Drive client
func NewClient(creds port.CredentialProvider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		creds:      creds,
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
	}
}

// SetBaseURLs overrides the API endpoints, used in tests
func (c *Client) SetBaseURLs(apiBase, uploadBase string) {
	c.apiBase = apiBase
	c.uploadBase = uploadBase
}

// File represents a Drive file or folder
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

type fileList struct {
	Files []File `json:"files"`
}

// About verifies the stored credentials with a lightweight
// account-info call.
func (c *Client) About(ctx context.Context) error {
	req, err := c.newRequest(ctx, "GET", c.apiBase+"/about?fields=user", nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// FindFolder looks for a child folder with the exact name under the
// parent. It returns an empty ID when no such folder exists.
func (c *Client) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
		parentID, name, folderMimeType)

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", "files(id, name)")

	req, err := c.newRequest(ctx, "GET", c.apiBase+"/files?"+params.Encode(), nil, "")
	if err != nil {
		return "", err
	}

	var list fileList
	if err := c.do(req, &list); err != nil {
		return "", fmt.Errorf("folder lookup %q failed: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].ID, nil
}

// CreateFolder creates a folder with the given name under the parent
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"name":     name,
		"mimeType": folderMimeType,
		"parents":  []string{parentID},
	})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, "POST", c.apiBase+"/files?fields=id", bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}

	var folder File
	if err := c.do(req, &folder); err != nil {
		return "", fmt.Errorf("folder creation %q failed: %w", name, err)
	}
	return folder.ID, nil
}

// UploadFile uploads a local file into the folder using a multipart
// related request.
func (c *Client) UploadFile(ctx context.Context, folderID, filename, filePath string) (*File, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(map[string]interface{}{
		"name":    filename,
		"parents": []string{folderID},
	})
	if err != nil {
		return nil, err
	}
	if _, err := metaPart.Write(meta); err != nil {
		return nil, err
	}

	dataHeader := textproto.MIMEHeader{}
	dataHeader.Set("Content-Type", "application/octet-stream")
	dataPart, err := writer.CreatePart(dataHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dataPart, f); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	uploadURL := c.uploadBase + "/files?uploadType=multipart&fields=id,webViewLink"
	contentType := "multipart/related; boundary=" + writer.Boundary()

	req, err := c.newRequest(ctx, "POST", uploadURL, &buf, contentType)
	if err != nil {
		return nil, err
	}

	var uploaded File
	if err := c.do(req, &uploaded); err != nil {
		return nil, fmt.Errorf("file upload failed: %w", err)
	}
	return &uploaded, nil
}

// newRequest builds an authorized request
func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Request, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do executes a request and decodes the JSON response into out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.creds.Invalidate()
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("drive API rejected credentials: %s: %w", string(body), domain.ErrInvalidCredentials)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("drive API error: %s (status: %d)", string(body), resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
