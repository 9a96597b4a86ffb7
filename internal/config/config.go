package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Download Download `mapstructure:"download"`
	Backends Backends `mapstructure:"backends"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	HTTP     HTTP     `mapstructure:"http"`
	Logging  Logging  `mapstructure:"logging"`
	Database Database `mapstructure:"database"`
}

// Download contains fetch-tool settings
type Download struct {
	Quality          string `mapstructure:"quality"`
	Proxy            string `mapstructure:"proxy"`
	FilenameTemplate string `mapstructure:"filename_template"`
	SkipFFmpegCheck  bool   `mapstructure:"skip_ffmpeg_check"`
}

// Backends contains per-backend destination settings
type Backends struct {
	CloudDrive CloudDrive `mapstructure:"gdrive"`
	CloudDisk  CloudDisk  `mapstructure:"clouddisk"`
}

// CloudDrive contains cloud-drive backend settings
type CloudDrive struct {
	TokenFile string `mapstructure:"token_file"`
}

// CloudDisk contains cloud-disk backend settings
type CloudDisk struct {
	Token string `mapstructure:"token"`
}

// Pipeline contains orchestrator tuning settings
type Pipeline struct {
	CancelPollInterval string `mapstructure:"cancel_poll_interval"`
	QueueCapacity      int    `mapstructure:"queue_capacity"`
	UploadRetries      int    `mapstructure:"upload_retries"`
	UploadRetryBackoff string `mapstructure:"upload_retry_backoff"`
}

// HTTP contains HTTP server configuration
type HTTP struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// Logging contains logging settings
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database contains run-history database settings
type Database struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from the specified file path
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("download.quality", "best")
	viper.SetDefault("download.proxy", "")
	viper.SetDefault("download.filename_template", "")
	viper.SetDefault("download.skip_ffmpeg_check", false)
	viper.SetDefault("backends.gdrive.token_file", "")
	viper.SetDefault("backends.clouddisk.token", "")
	viper.SetDefault("pipeline.cancel_poll_interval", "100ms")
	viper.SetDefault("pipeline.queue_capacity", 16)
	viper.SetDefault("pipeline.upload_retries", 1)
	viper.SetDefault("pipeline.upload_retry_backoff", "2s")
	viper.SetDefault("http.bind_addr", "127.0.0.1:8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "30s")
	viper.SetDefault("http.idle_timeout", "60s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("database.path", "video-courier.db")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Pipeline.QueueCapacity < 0 {
		return fmt.Errorf("pipeline.queue_capacity must not be negative")
	}
	if c.Pipeline.UploadRetries < 1 {
		return fmt.Errorf("pipeline.upload_retries must be at least 1")
	}
	if _, err := time.ParseDuration(c.Pipeline.CancelPollInterval); err != nil {
		return fmt.Errorf("invalid pipeline.cancel_poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Pipeline.UploadRetryBackoff); err != nil {
		return fmt.Errorf("invalid pipeline.upload_retry_backoff: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetCancelPollInterval returns the cancellation poll interval as time.Duration
func (c *Pipeline) GetCancelPollInterval() time.Duration {
	d, _ := time.ParseDuration(c.CancelPollInterval)
	if d == 0 {
		return 100 * time.Millisecond
	}
	return d
}

// GetUploadRetryBackoff returns the upload retry backoff as time.Duration
func (c *Pipeline) GetUploadRetryBackoff() time.Duration {
	d, _ := time.ParseDuration(c.UploadRetryBackoff)
	if d == 0 {
		return 2 * time.Second
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTP) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTP) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTP) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}
