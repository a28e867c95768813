package blotter

import "log/slog"

type options struct {
	artifactDir    string
	manifest       string
	runtimeLibrary string
	verbosity      string
	workers        int
	logger         *slog.Logger
}

// Option configures a Blotter instance.
type Option func(*options)

// WithArtifactDir sets the directory holding manifest.yaml and the fitted
// artifacts it names. Default: "artifacts".
func WithArtifactDir(dir string) Option {
	return func(o *options) {
		o.artifactDir = dir
	}
}

// WithManifest sets an explicit manifest path. Relative artifact paths in
// the manifest resolve against its directory. Takes precedence over
// WithArtifactDir.
func WithManifest(path string) Option {
	return func(o *options) {
		o.manifest = path
	}
}

// WithORTLibrary sets the onnxruntime shared library used by ONNX models.
func WithORTLibrary(path string) Option {
	return func(o *options) {
		o.runtimeLibrary = path
	}
}

// WithVerbosity sets how much detail predictions carry: "minimal",
// "standard" or "full". Default: "full".
func WithVerbosity(v string) Option {
	return func(o *options) {
		o.verbosity = v
	}
}

// WithWorkers bounds ClassifyBatch concurrency. Default: GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger for load and per-report diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		artifactDir: "artifacts",
		verbosity:   "full",
		logger:      slog.Default(),
	}
}

// artifactPath returns the manifest when set, otherwise the artifact directory.
func (o options) artifactPath() string {
	if o.manifest != "" {
		return o.manifest
	}
	return o.artifactDir
}
