package fetch

import (
	"context"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// DefaultFilenameTemplate is used when the request carries no template
const DefaultFilenameTemplate = "%(title)s.%(ext)s"

const progressLogInterval = 500 * time.Millisecond

// lookPath is swappable in tests
var lookPath = exec.LookPath

// FFmpegInstalled reports whether ffmpeg is available on PATH. It is
// required for merging best-quality video and audio streams.
func FFmpegInstalled() bool {
	_, err := lookPath("ffmpeg")
	return err == nil
}

// YtdlpFetcher fetches videos by driving the yt-dlp tool
type YtdlpFetcher struct {
	logger *zap.Logger
}

// Ensure YtdlpFetcher implements port.Fetcher
var _ port.Fetcher = (*YtdlpFetcher)(nil)

// NewYtdlpFetcher creates a new yt-dlp backed fetcher
func NewYtdlpFetcher(logger *zap.Logger) *YtdlpFetcher {
	return &YtdlpFetcher{logger: logger}
}

// Fetch downloads one URL into req.TargetDir. Expected failures
// (network errors, unavailable videos) are reported through the result
// status, never as a panic or escaping error.
func (f *YtdlpFetcher) Fetch(ctx context.Context, req domain.FetchRequest) domain.DownloadResult {
	f.logger.Info("starting download", zap.String("url", req.URL))

	template := req.FilenameTemplate
	if template == "" {
		template = DefaultFilenameTemplate
	}

	dl := ytdlp.New().
		NoPlaylist().
		Output(filepath.Join(req.TargetDir, template))

	if req.Quality != "" {
		dl = dl.Format(domain.ResolveQuality(req.Quality))
	}
	if req.Proxy != "" {
		dl = dl.Proxy(req.Proxy)
		f.logger.Info("using proxy", zap.String("proxy", req.Proxy))
	}

	dl.ProgressFunc(progressLogInterval, func(update ytdlp.ProgressUpdate) {
		f.logger.Debug("download progress",
			zap.String("url", req.URL),
			zap.Int64("downloaded_bytes", int64(update.DownloadedBytes)),
			zap.Int64("total_bytes", int64(update.TotalBytes)))
	})

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		f.logger.Error("download failed", zap.String("url", req.URL), zap.Error(err))
		return domain.DownloadResult{
			Status: domain.StatusError,
			URL:    req.URL,
			Error:  err.Error(),
		}
	}

	path, err := downloadedFilePath(result)
	if err != nil {
		f.logger.Error("download produced no file", zap.String("url", req.URL), zap.Error(err))
		return domain.DownloadResult{
			Status: domain.StatusError,
			URL:    req.URL,
			Error:  err.Error(),
		}
	}

	f.logger.Info("download complete",
		zap.String("url", req.URL),
		zap.String("file", filepath.Base(path)))

	return domain.DownloadResult{
		Status: domain.StatusSuccess,
		URL:    req.URL,
		Path:   path,
	}
}

// downloadedFilePath extracts the output file path from a yt-dlp run
func downloadedFilePath(result *ytdlp.Result) (string, error) {
	info, err := result.GetExtractedInfo()
	if err != nil {
		return "", err
	}
	for _, entry := range info {
		if entry.Filename != nil && *entry.Filename != "" {
			return *entry.Filename, nil
		}
	}
	return "", domain.NewItemError(nil, "yt-dlp reported no output filename")
}
