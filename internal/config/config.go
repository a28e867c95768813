package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the blotter release version.
const Version = "0.4.0"

// DefaultEnvFile is read by LoadEnvFile when no path is given.
const DefaultEnvFile = ".env"

// Config holds all blotter configuration.
type Config struct {
	Mode            string // "stream" or "query"
	ShutdownTimeout time.Duration

	Source    SourceConfig
	Artifacts ArtifactsConfig
	Engine    EngineConfig
	Output    OutputConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// SourceConfig holds report source settings.
type SourceConfig struct {
	Provider string
	Path     string
	Pattern  string
	Debounce time.Duration
	TikaURL  string
}

// Extra returns provider-specific settings for source.Config.
func (s SourceConfig) Extra() map[string]string {
	if s.TikaURL == "" {
		return nil
	}
	return map[string]string{"tika_url": s.TikaURL}
}

// ArtifactsConfig locates the fitted artifacts.
type ArtifactsConfig struct {
	Dir        string
	Manifest   string // overrides Dir/manifest.yaml
	ORTLibrary string // onnxruntime shared library, for ONNX models
}

// Path returns the manifest when set, otherwise the artifact directory.
func (a ArtifactsConfig) Path() string {
	if a.Manifest != "" {
		return a.Manifest
	}
	return a.Dir
}

// EngineConfig holds classification engine settings.
type EngineConfig struct {
	Verbosity     string // "minimal", "standard", "full"
	Workers       int
	DedupWindow   time.Duration
	MaxBufferSize int
}

// OutputConfig holds output destination settings. Stdout is always used
// unless Format is "none"; the other sinks are added when configured.
type OutputConfig struct {
	Format             string // "stdout" or "none"
	Pretty             bool
	FilePath           string
	FileMaxSize        int64
	WebhookURL         string
	WebhookAuth        string
	WebhookMinSeverity int // 0 posts every record
	MySQLDSN           string
	MySQLTable         string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string // "auto", "json", "text"
}

// MetricsConfig holds the Prometheus listener settings. Empty Addr disables it.
type MetricsConfig struct {
	Addr string
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. An empty path tries DefaultEnvFile and ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Mode:            getenv("BLOTTER_MODE", "stream"),
		ShutdownTimeout: getenvDuration("BLOTTER_SHUTDOWN_TIMEOUT", 10*time.Second),
		Source: SourceConfig{
			Provider: getenv("BLOTTER_SOURCE", "dir"),
			Path:     os.Getenv("BLOTTER_SOURCE_PATH"),
			Pattern:  os.Getenv("BLOTTER_SOURCE_PATTERN"),
			Debounce: getenvDuration("BLOTTER_SOURCE_DEBOUNCE", 500*time.Millisecond),
			TikaURL:  os.Getenv("BLOTTER_TIKA_URL"),
		},
		Artifacts: ArtifactsConfig{
			Dir:        getenv("BLOTTER_ARTIFACT_DIR", "artifacts"),
			Manifest:   os.Getenv("BLOTTER_MANIFEST"),
			ORTLibrary: os.Getenv("BLOTTER_ORT_LIBRARY"),
		},
		Engine: EngineConfig{
			Verbosity:     getenv("BLOTTER_VERBOSITY", "standard"),
			Workers:       getenvInt("BLOTTER_WORKERS", 4),
			DedupWindow:   getenvDuration("BLOTTER_DEDUP_WINDOW", 5*time.Second),
			MaxBufferSize: getenvInt("BLOTTER_MAX_BUFFER_SIZE", 1000),
		},
		Output: OutputConfig{
			Format:             getenv("BLOTTER_OUTPUT", "stdout"),
			Pretty:             getenvBool("BLOTTER_OUTPUT_PRETTY", false),
			FilePath:           os.Getenv("BLOTTER_OUTPUT_FILE"),
			FileMaxSize:        int64(getenvInt("BLOTTER_OUTPUT_FILE_MAX_SIZE", 0)),
			WebhookURL:         os.Getenv("BLOTTER_WEBHOOK_URL"),
			WebhookAuth:        os.Getenv("BLOTTER_WEBHOOK_TOKEN"),
			WebhookMinSeverity: getenvInt("BLOTTER_WEBHOOK_MIN_SEVERITY", 0),
			MySQLDSN:           os.Getenv("BLOTTER_MYSQL_DSN"),
			MySQLTable:         getenv("BLOTTER_MYSQL_TABLE", "blotter_predictions"),
		},
		Log: LogConfig{
			Level:  getenv("BLOTTER_LOG_LEVEL", "info"),
			Format: getenv("BLOTTER_LOG_FORMAT", "auto"),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("BLOTTER_METRICS_ADDR"),
		},
	}
}

// Validate checks the settings every command needs and returns all
// problems found, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Mode != "stream" && c.Mode != "query" {
		errs = append(errs, fmt.Errorf("mode must be \"stream\" or \"query\", got %q", c.Mode))
	}

	path := c.Artifacts.Path()
	if path == "" {
		errs = append(errs, errors.New("BLOTTER_ARTIFACT_DIR or BLOTTER_MANIFEST is required"))
	} else if _, err := os.Stat(path); err != nil {
		errs = append(errs, fmt.Errorf("artifacts not found: %s", path))
	}

	switch c.Engine.Verbosity {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("verbosity must be minimal, standard or full, got %q", c.Engine.Verbosity))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Engine.Workers))
	}
	if c.Engine.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("dedup window must be >= 0, got %v", c.Engine.DedupWindow))
	}
	if c.Engine.MaxBufferSize < 0 {
		errs = append(errs, fmt.Errorf("max buffer size must be >= 0, got %d", c.Engine.MaxBufferSize))
	}

	if c.Output.Format != "stdout" && c.Output.Format != "none" {
		errs = append(errs, fmt.Errorf("output must be \"stdout\" or \"none\", got %q", c.Output.Format))
	}
	if c.Output.WebhookMinSeverity < 0 || c.Output.WebhookMinSeverity > 5 {
		errs = append(errs, fmt.Errorf("webhook min severity must be between 0 and 5, got %d", c.Output.WebhookMinSeverity))
	}
	if c.Output.FileMaxSize < 0 {
		errs = append(errs, fmt.Errorf("output file max size must be >= 0, got %d", c.Output.FileMaxSize))
	}
	if c.Output.FilePath != "" {
		if dir := filepath.Dir(c.Output.FilePath); dir != "." {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				errs = append(errs, fmt.Errorf("output file parent is not a directory: %s", dir))
			}
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "auto", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log format must be auto, json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ValidateSource checks the settings needed to read reports from a source.
func (c Config) ValidateSource() error {
	var errs []error
	if c.Source.Provider == "" {
		errs = append(errs, errors.New("BLOTTER_SOURCE is required"))
	}
	if c.Source.Path == "" {
		errs = append(errs, errors.New("BLOTTER_SOURCE_PATH is required"))
	} else if info, err := os.Stat(c.Source.Path); err != nil || !info.IsDir() {
		errs = append(errs, fmt.Errorf("source path is not a directory: %s", c.Source.Path))
	}
	if c.Source.Debounce < 0 {
		errs = append(errs, fmt.Errorf("source debounce must be >= 0, got %v", c.Source.Debounce))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
