package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/port"
	"go.uber.org/zap"
)

// Config contains pipeline tuning
type Config struct {
	// CancelPollInterval is how often the cancellation flag is checked
	CancelPollInterval time.Duration
	// QueueCapacity bounds the download→upload handoff queue
	QueueCapacity int
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		CancelPollInterval: 100 * time.Millisecond,
		QueueCapacity:      16,
	}
}

// Pipeline runs the download→upload orchestration for one batch of
// URLs: a downloader activity and an uploader activity overlap,
// connected by a FIFO handoff queue. Each activity owns its own result
// list; the orchestrator merges them once both have finished.
type Pipeline struct {
	config     *Config
	fetcher    port.Fetcher
	dispatcher port.Dispatcher
	logger     *zap.Logger
}

// New creates a new pipeline
func New(cfg *Config, fetcher port.Fetcher, dispatcher port.Dispatcher, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CancelPollInterval == 0 {
		cfg.CancelPollInterval = 100 * time.Millisecond
	}
	if cfg.QueueCapacity < 0 {
		cfg.QueueCapacity = 0
	}
	return &Pipeline{
		config:     cfg,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run executes one full run and blocks until it reaches a terminal
// state. The events sink receives progress, per-item errors and
// exactly one finished event. A non-nil return means a setup failure:
// the run never started and no finished event was emitted.
//
// When the destination is the local filesystem the destination folder
// itself is the working directory and no upload stage runs; otherwise
// downloads land in a temporary directory that is removed on every
// exit path.
func (p *Pipeline) Run(ctx context.Context, req domain.RunRequest, flag *CancelFlag, events port.Events) error {
	if len(req.URLs) == 0 {
		return domain.NewSetupError(fmt.Errorf("no URLs given: %w", domain.ErrInvalidInput))
	}

	var workDir string
	if req.LocalOnly() {
		workDir = req.DestFolder
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return domain.NewSetupError(fmt.Errorf("failed to create destination dir: %w", err))
		}
	} else {
		tmpDir, err := os.MkdirTemp("", "video-courier-")
		if err != nil {
			return domain.NewSetupError(fmt.Errorf("failed to create working dir: %w", err))
		}
		workDir = tmpDir
		defer os.RemoveAll(tmpDir)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events.Progress(5, fmt.Sprintf("working directory: %s", workDir))

	// A closed channel is the end-of-stream sentinel. In local-only
	// mode there is no uploader, so no queue is created at all.
	var queue chan domain.DownloadResult
	if !req.LocalOnly() {
		queue = make(chan domain.DownloadResult, p.config.QueueCapacity)
	}

	var (
		wg              sync.WaitGroup
		downloadResults []domain.DownloadResult
		uploadResults   []domain.UploadResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		downloadResults = p.runDownloader(runCtx, req, workDir, queue, events)
	}()

	if queue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uploadResults = p.runUploader(runCtx, req, queue, events)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(p.config.CancelPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			p.logger.Info("pipeline completed",
				zap.Int("downloads", len(downloadResults)),
				zap.Int("uploads", len(uploadResults)))
			events.Progress(100, "completed")
			events.Finished(downloadResults, uploadResults, false)
			return nil
		case <-ticker.C:
			if !flag.IsSet() {
				continue
			}
			p.logger.Info("cancellation requested, stopping activities")
			cancel()
			<-done
			p.logger.Warn("pipeline cancelled")
			events.Finished(nil, nil, true)
			return nil
		}
	}
}

// runDownloader fetches each URL in input order and hands successful
// results to the uploader. Failed downloads are reported through the
// error event and never queued; they are non-fatal to the batch.
func (p *Pipeline) runDownloader(ctx context.Context, req domain.RunRequest, workDir string, queue chan<- domain.DownloadResult, events port.Events) []domain.DownloadResult {
	defer func() {
		if queue != nil {
			close(queue)
		}
	}()

	total := len(req.URLs)
	results := make([]domain.DownloadResult, 0, total)

	for i, url := range req.URLs {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		events.Progress(downloadProgress(i, total),
			fmt.Sprintf("downloading %d/%d: %s", i+1, total, url))

		result := p.fetcher.Fetch(ctx, domain.FetchRequest{
			URL:              url,
			TargetDir:        workDir,
			Quality:          req.Quality,
			Proxy:            req.Proxy,
			FilenameTemplate: req.FilenameTemplate,
		})
		if ctx.Err() != nil {
			// Interrupted mid-fetch; the partial result is meaningless
			return results
		}

		results = append(results, result)

		if !result.OK() {
			events.Error(fmt.Sprintf("download failed for %s: %s", url, result.Error))
			continue
		}
		if queue != nil {
			select {
			case queue <- result:
			case <-ctx.Done():
				return results
			}
		}
	}
	return results
}

// runUploader drains the handoff queue until the sentinel (channel
// close) and uploads each file. Per-item upload errors are reported
// through the error event and do not stop the batch.
func (p *Pipeline) runUploader(ctx context.Context, req domain.RunRequest, queue <-chan domain.DownloadResult, events port.Events) []domain.UploadResult {
	total := len(req.URLs)
	var results []domain.UploadResult
	uploaded := 0

	for {
		select {
		case <-ctx.Done():
			return results
		case dl, ok := <-queue:
			if !ok {
				return results
			}

			uploaded++
			events.Progress(uploadProgress(uploaded, total),
				fmt.Sprintf("uploading %d/%d: %s", uploaded, total, dl.Filename()))

			result := p.dispatcher.Dispatch(ctx, domain.UploadTaskFrom(dl, req.Backend, req.DestFolder))
			results = append(results, result)

			if !result.OK() {
				events.Error(fmt.Sprintf("upload failed for %s: %s", result.Filename, result.Error))
			}
		}
	}
}

// downloadProgress maps the i-th download (0-based) of n into the
// first half of the 5..100 range.
func downloadProgress(i, n int) int {
	return 5 + i*95/(2*n)
}

// uploadProgress maps the k-th upload (1-based) of n into the second
// half of the 5..100 range, stopping short of 100: the final value is
// reserved for completion.
func uploadProgress(k, n int) int {
	return 5 + (n+k-1)*95/(2*n)
}
