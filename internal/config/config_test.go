package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"BLOTTER_MODE", "BLOTTER_SHUTDOWN_TIMEOUT",
	"BLOTTER_SOURCE", "BLOTTER_SOURCE_PATH", "BLOTTER_SOURCE_PATTERN",
	"BLOTTER_SOURCE_DEBOUNCE", "BLOTTER_TIKA_URL",
	"BLOTTER_ARTIFACT_DIR", "BLOTTER_MANIFEST", "BLOTTER_ORT_LIBRARY",
	"BLOTTER_VERBOSITY", "BLOTTER_WORKERS", "BLOTTER_DEDUP_WINDOW", "BLOTTER_MAX_BUFFER_SIZE",
	"BLOTTER_OUTPUT", "BLOTTER_OUTPUT_PRETTY", "BLOTTER_OUTPUT_FILE", "BLOTTER_OUTPUT_FILE_MAX_SIZE",
	"BLOTTER_WEBHOOK_URL", "BLOTTER_WEBHOOK_TOKEN", "BLOTTER_WEBHOOK_MIN_SEVERITY", "BLOTTER_MYSQL_DSN", "BLOTTER_MYSQL_TABLE",
	"BLOTTER_LOG_LEVEL", "BLOTTER_LOG_FORMAT", "BLOTTER_METRICS_ADDR",
}

func clearEnv() {
	for _, key := range allKeys {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Mode != "stream" {
		t.Fatalf("expected default Mode='stream', got %q", cfg.Mode)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected default ShutdownTimeout=10s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Source.Provider != "dir" {
		t.Fatalf("expected default source 'dir', got %q", cfg.Source.Provider)
	}
	if cfg.Source.Extra() != nil {
		t.Fatalf("expected nil Extra without a Tika URL, got %v", cfg.Source.Extra())
	}
	if cfg.Artifacts.Path() != "artifacts" {
		t.Fatalf("expected default artifact path 'artifacts', got %q", cfg.Artifacts.Path())
	}
	if cfg.Engine.Verbosity != "standard" {
		t.Fatalf("expected default verbosity 'standard', got %q", cfg.Engine.Verbosity)
	}
	if cfg.Engine.DedupWindow != 5*time.Second {
		t.Fatalf("expected default DedupWindow=5s, got %v", cfg.Engine.DedupWindow)
	}
	if cfg.Engine.MaxBufferSize != 1000 {
		t.Fatalf("expected default MaxBufferSize=1000, got %d", cfg.Engine.MaxBufferSize)
	}
	if cfg.Output.Pretty {
		t.Fatal("expected default Pretty=false")
	}
	if cfg.Output.MySQLTable != "blotter_predictions" {
		t.Fatalf("expected default MySQL table, got %q", cfg.Output.MySQLTable)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("expected metrics disabled by default, got %q", cfg.Metrics.Addr)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv()
	env := map[string]string{
		"BLOTTER_MODE":            "query",
		"BLOTTER_SOURCE_PATH":     "/srv/inbox",
		"BLOTTER_TIKA_URL":        "http://tika:9998",
		"BLOTTER_MANIFEST":        "/srv/model/manifest.yaml",
		"BLOTTER_VERBOSITY":       "full",
		"BLOTTER_WORKERS":         "8",
		"BLOTTER_DEDUP_WINDOW":    "0s",
		"BLOTTER_OUTPUT_PRETTY":   "true",
		"BLOTTER_OUTPUT_FILE":     "/var/log/blotter.jsonl",
		"BLOTTER_METRICS_ADDR":    ":9464",
		"BLOTTER_SOURCE_DEBOUNCE": "2s",
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	defer clearEnv()

	cfg := Load()

	if cfg.Mode != "query" {
		t.Errorf("Mode = %q, want query", cfg.Mode)
	}
	if cfg.Source.Extra()["tika_url"] != "http://tika:9998" {
		t.Errorf("Extra = %v, want tika_url", cfg.Source.Extra())
	}
	if cfg.Source.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Source.Debounce)
	}
	if cfg.Artifacts.Path() != "/srv/model/manifest.yaml" {
		t.Errorf("Artifacts.Path() = %q, want the manifest override", cfg.Artifacts.Path())
	}
	if cfg.Engine.Workers != 8 || cfg.Engine.Verbosity != "full" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Engine.DedupWindow != 0 {
		t.Errorf("DedupWindow = %v, want 0 (disabled)", cfg.Engine.DedupWindow)
	}
	if !cfg.Output.Pretty || cfg.Output.FilePath != "/var/log/blotter.jsonl" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Metrics.Addr != ":9464" {
		t.Errorf("Metrics.Addr = %q, want :9464", cfg.Metrics.Addr)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv()
	defer clearEnv()

	path := filepath.Join(t.TempDir(), "blotter.env")
	content := "BLOTTER_VERBOSITY=minimal\nBLOTTER_WORKERS=2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	// Variables already set win over the file.
	os.Setenv("BLOTTER_WORKERS", "16")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile error: %v", err)
	}
	cfg := Load()
	if cfg.Engine.Verbosity != "minimal" {
		t.Errorf("Verbosity = %q, want minimal from file", cfg.Engine.Verbosity)
	}
	if cfg.Engine.Workers != 16 {
		t.Errorf("Workers = %d, want 16 from environment", cfg.Engine.Workers)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected error for an explicit missing env file")
	}
}

// --- Validation tests ---

// validConfig returns a Config with real temp paths so existence checks pass.
func validConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	inbox := filepath.Join(dir, "inbox")
	if err := os.Mkdir(inbox, 0755); err != nil {
		t.Fatal(err)
	}
	return Config{
		Mode:      "stream",
		Source:    SourceConfig{Provider: "dir", Path: inbox},
		Artifacts: ArtifactsConfig{Dir: dir},
		Engine: EngineConfig{
			Verbosity:     "standard",
			Workers:       4,
			DedupWindow:   5 * time.Second,
			MaxBufferSize: 1000,
		},
		Output: OutputConfig{Format: "stdout"},
		Log:    LogConfig{Level: "info", Format: "auto"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected nil error for valid config, got: %v", err)
	}
	if err := cfg.ValidateSource(); err != nil {
		t.Fatalf("expected nil source error for valid config, got: %v", err)
	}
}

func TestValidate_QueryModeValid(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "query"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected nil error for mode='query', got: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "replay" }, "mode"},
		{"bad verbosity", func(c *Config) { c.Engine.Verbosity = "verbose" }, "verbosity"},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }, "workers"},
		{"negative dedup", func(c *Config) { c.Engine.DedupWindow = -time.Second }, "dedup"},
		{"negative buffer", func(c *Config) { c.Engine.MaxBufferSize = -1 }, "buffer"},
		{"missing artifacts", func(c *Config) { c.Artifacts.Dir = "/nonexistent/artifacts" }, "artifacts"},
		{"bad output", func(c *Config) { c.Output.Format = "kafka" }, "output"},
		{"bad log format", func(c *Config) { c.Log.Format = "logfmt" }, "log format"},
		{"webhook severity", func(c *Config) { c.Output.WebhookMinSeverity = 6 }, "webhook min severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "replay"
	cfg.Engine.Verbosity = "loud"
	cfg.Engine.DedupWindow = -time.Second
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple bad fields")
	}
	msg := err.Error()
	for _, want := range []string{"mode", "verbosity", "dedup"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %v", want, msg)
		}
	}
}

func TestValidateSource(t *testing.T) {
	cfg := validConfig(t)
	cfg.Source.Path = ""
	err := cfg.ValidateSource()
	if err == nil || !strings.Contains(err.Error(), "BLOTTER_SOURCE_PATH") {
		t.Fatalf("expected error to mention BLOTTER_SOURCE_PATH, got: %v", err)
	}

	cfg.Source.Path = filepath.Join(cfg.Artifacts.Dir, "manifest.yaml")
	if err := cfg.ValidateSource(); err == nil {
		t.Fatal("expected error when the source path is a file")
	}
}

// --- getenv helper tests ---

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		set      bool
		fallback int
		want     int
	}{
		{"empty uses fallback", "", false, 1000, 1000},
		{"valid int", "500", true, 1000, 500},
		{"zero", "0", true, 1000, 0},
		{"invalid falls back", "abc", true, 1000, 1000},
		{"negative", "-1", true, 1000, -1},
	}

	const key = "BLOTTER_TEST_GETENVINT"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				os.Setenv(key, tt.envVal)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}
			got := getenvInt(key, tt.fallback)
			if got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestGetenvDurationInvalid(t *testing.T) {
	const key = "BLOTTER_TEST_GETENVDURATION"
	os.Setenv(key, "soon")
	defer os.Unsetenv(key)
	if got := getenvDuration(key, time.Minute); got != time.Minute {
		t.Errorf("getenvDuration(invalid) = %v, want fallback 1m", got)
	}
}

func TestVersion_IsSet(t *testing.T) {
	if Version == "" {
		t.Fatal("expected non-empty Version constant")
	}
}
