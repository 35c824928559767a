package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port              int     `yaml:"port"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"server"`

	Download struct {
		OutputDir           string            `yaml:"output_dir"`
		AudioExt            string            `yaml:"audio_ext"`
		RequestTimeout      time.Duration     `yaml:"request_timeout"`
		DownloadTimeout     time.Duration     `yaml:"download_timeout"`
		MaxConcurrent       int               `yaml:"max_concurrent"`
		MaxBytesPerSec      int64             `yaml:"max_bytes_per_sec"`
		ProgressLogInterval time.Duration     `yaml:"progress_log_interval"`
		Headers             map[string]string `yaml:"headers"`
	} `yaml:"download"`

	Janitor struct {
		StaleAfter time.Duration `yaml:"stale_after"`
		Interval   time.Duration `yaml:"interval"`
	} `yaml:"janitor"`
}

// DefaultHeaders is the browser-like header set sent to the video platform.
// Accept-Encoding is left to the transport so compressed bodies are decoded.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Cache-Control":             "max-age=0",
	}
}

func Default() *Config {
	var cfg Config
	cfg.Server.Port = 3000
	cfg.Server.Burst = 1
	cfg.Download.OutputDir = "."
	cfg.Download.AudioExt = "mp3"
	cfg.Download.RequestTimeout = 10 * time.Second
	cfg.Download.ProgressLogInterval = time.Second
	cfg.Download.Headers = DefaultHeaders()
	cfg.Janitor.StaleAfter = time.Hour
	cfg.Janitor.Interval = 30 * time.Minute
	return &cfg
}

// Load reads .env (if any) and the YAML file named by CONFIG_PATH.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadConfig(getenv("CONFIG_PATH", "config.yaml"))
}

// LoadConfig layers the YAML file at path and then environment overrides
// on top of Default. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if len(cfg.Download.Headers) == 0 {
		cfg.Download.Headers = DefaultHeaders()
	}
	cfg.Download.AudioExt = strings.TrimPrefix(strings.TrimSpace(cfg.Download.AudioExt), ".")
	if cfg.Download.OutputDir == "" {
		cfg.Download.OutputDir = "."
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	case c.Server.RequestsPerSecond < 0:
		return fmt.Errorf("requests_per_second must be >= 0")
	case c.Server.RequestsPerSecond > 0 && c.Server.Burst <= 0:
		return fmt.Errorf("burst must be > 0 when rate limiting is enabled")
	case c.Download.AudioExt == "":
		return fmt.Errorf("audio_ext must not be empty")
	case c.Download.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be > 0")
	case c.Download.DownloadTimeout < 0:
		return fmt.Errorf("download_timeout must be >= 0")
	case c.Download.MaxConcurrent < 0:
		return fmt.Errorf("max_concurrent must be >= 0")
	case c.Download.MaxBytesPerSec < 0:
		return fmt.Errorf("max_bytes_per_sec must be >= 0")
	case c.Janitor.StaleAfter <= 0:
		return fmt.Errorf("janitor.stale_after must be > 0")
	case c.Janitor.Interval < 0:
		return fmt.Errorf("janitor.interval must be >= 0")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func applyEnv(c *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REQUESTS_PER_SECOND: %w", err)
		}
		c.Server.RequestsPerSecond = n
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Download.OutputDir = v
	}
	if v := os.Getenv("AUDIO_EXT"); v != "" {
		c.Download.AudioExt = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		c.Download.RequestTimeout = d
	}
	if v := os.Getenv("DOWNLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOWNLOAD_TIMEOUT: %w", err)
		}
		c.Download.DownloadTimeout = d
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_CONCURRENT: %w", err)
		}
		c.Download.MaxConcurrent = n
	}
	if v := os.Getenv("MAX_BYTES_PER_SEC"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BYTES_PER_SEC: %w", err)
		}
		c.Download.MaxBytesPerSec = n
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
