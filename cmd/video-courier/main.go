package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/strmforge/video-courier/internal/adapter/sqlite"
	"github.com/strmforge/video-courier/internal/auth"
	"github.com/strmforge/video-courier/internal/config"
	"github.com/strmforge/video-courier/internal/domain"
	"github.com/strmforge/video-courier/internal/fetch"
	"github.com/strmforge/video-courier/internal/httpapi"
	"github.com/strmforge/video-courier/internal/logger"
	"github.com/strmforge/video-courier/internal/pipeline"
	"github.com/strmforge/video-courier/internal/port"
	"github.com/strmforge/video-courier/internal/upload"
	"github.com/strmforge/video-courier/internal/upload/clouddisk"
	"github.com/strmforge/video-courier/internal/upload/gdrive"
	"github.com/strmforge/video-courier/internal/upload/localfs"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	urls := flag.String("urls", "", "Comma-separated video URLs (one-shot mode; omit to run the server)")
	backend := flag.String("backend", "", "Destination backend for one-shot mode (gdrive, clouddisk, local)")
	dest := flag.String("dest", "", "Destination folder for one-shot mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.Get()
	zapLogger.Info("starting video-courier",
		zap.String("version", version),
		zap.String("config", *configPath))

	// Upload stack: registry, strategies, dispatcher
	registry := upload.NewRegistry()
	registerStrategies(registry, cfg, zapLogger)

	var dispatcher port.Dispatcher = upload.NewDispatcher(registry, zapLogger)
	if cfg.Pipeline.UploadRetries > 1 {
		dispatcher = upload.NewRetryDispatcher(
			upload.NewDispatcher(registry, zapLogger),
			&upload.RetryConfig{
				MaxAttempts:  cfg.Pipeline.UploadRetries,
				InitialDelay: cfg.Pipeline.GetUploadRetryBackoff(),
				Multiplier:   2.0,
			},
			zapLogger,
		)
	}

	fetcher := fetch.NewYtdlpFetcher(zapLogger)
	pipelineCfg := &pipeline.Config{
		CancelPollInterval: cfg.Pipeline.GetCancelPollInterval(),
		QueueCapacity:      cfg.Pipeline.QueueCapacity,
	}
	pipe := pipeline.New(pipelineCfg, fetcher, dispatcher, zapLogger)

	var binaryCheck pipeline.BinaryCheck
	if !cfg.Download.SkipFFmpegCheck {
		binaryCheck = fetch.FFmpegInstalled
	}
	preflight := pipeline.NewPreflight(registry, binaryCheck, zapLogger)

	if *urls != "" {
		runOnce(cfg, pipe, preflight, *urls, *backend, *dest, zapLogger)
		return
	}

	runServer(cfg, pipe, preflight, zapLogger)
}

// registerStrategies wires the backend strategies into the registry
func registerStrategies(registry *upload.Registry, cfg *config.Config, zapLogger *zap.Logger) {
	driveCreds := auth.NewFileProvider(cfg.Backends.CloudDrive.TokenFile)
	registry.Register(domain.BackendCloudDrive, func() (port.Strategy, error) {
		return gdrive.New(gdrive.NewClient(driveCreds), zapLogger), nil
	})

	diskCreds := auth.NewStaticProvider(cfg.Backends.CloudDisk.Token)
	registry.Register(domain.BackendCloudDisk, func() (port.Strategy, error) {
		return clouddisk.New(clouddisk.NewClient(diskCreds), zapLogger), nil
	})

	registry.Register(domain.BackendLocal, func() (port.Strategy, error) {
		return localfs.New(zapLogger), nil
	})
}

// runOnce executes a single pipeline run from command-line arguments
func runOnce(cfg *config.Config, pipe *pipeline.Pipeline, preflight *pipeline.Preflight, rawURLs, backend, dest string, zapLogger *zap.Logger) {
	if backend == "" {
		backend = domain.BackendLocal
	}

	var urlList []string
	for _, u := range strings.Split(rawURLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urlList = append(urlList, u)
		}
	}
	if len(urlList) == 0 {
		fmt.Fprintln(os.Stderr, "No URLs given")
		os.Exit(1)
	}

	ctx := context.Background()
	if ok, message := preflight.Check(ctx, backend, dest); !ok {
		fmt.Fprintf(os.Stderr, "Pre-flight check failed: %s\n", message)
		os.Exit(1)
	}

	req := domain.RunRequest{
		URLs:             urlList,
		Backend:          backend,
		DestFolder:       dest,
		Quality:          cfg.Download.Quality,
		Proxy:            cfg.Download.Proxy,
		FilenameTemplate: cfg.Download.FilenameTemplate,
	}

	events := &consoleEvents{}
	if err := pipe.Run(ctx, req, pipeline.NewCancelFlag(), events); err != nil {
		zapLogger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
	if events.failed {
		os.Exit(1)
	}
}

// runServer starts the HTTP front-end and blocks until shutdown
func runServer(cfg *config.Config, pipe *pipeline.Pipeline, preflight *pipeline.Preflight, zapLogger *zap.Logger) {
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		zapLogger.Fatal("failed to open run-history database", zap.Error(err),
			zap.String("path", cfg.Database.Path))
	}
	defer store.Close()

	manager := pipeline.NewManager(pipe, preflight, store, zapLogger)

	serverCfg := &httpapi.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
	}
	server := httpapi.New(serverCfg, manager, zapLogger)

	go func() {
		if err := server.Start(); err != nil {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr))
	<-sigChan

	zapLogger.Info("shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("application stopped")
}

// consoleEvents prints pipeline events for the one-shot CLI mode
type consoleEvents struct {
	failed bool
}

func (e *consoleEvents) Progress(percent int, message string) {
	fmt.Printf("[%3d%%] %s\n", percent, message)
}

func (e *consoleEvents) Error(message string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", message)
}

func (e *consoleEvents) Finished(downloads []domain.DownloadResult, uploads []domain.UploadResult, wasCancelled bool) {
	if wasCancelled {
		fmt.Println("Run cancelled.")
		e.failed = true
		return
	}

	okDownloads := 0
	for _, d := range downloads {
		if d.OK() {
			okDownloads++
		}
	}
	fmt.Printf("Downloaded %d of %d file(s).\n", okDownloads, len(downloads))

	if len(uploads) > 0 {
		okUploads := 0
		for _, u := range uploads {
			if u.OK() {
				okUploads++
			}
		}
		fmt.Printf("Uploaded %d of %d file(s).\n", okUploads, len(uploads))
		if okUploads < len(uploads) {
			e.failed = true
		}
	}
	if okDownloads < len(downloads) {
		e.failed = true
	}
}
