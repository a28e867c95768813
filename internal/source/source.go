package source

import (
	"context"
	"time"

	"github.com/crimson-sun/blotter/internal/model"
)

// Source defines the interface every report source must implement.
type Source interface {
	// Stream watches for new reports and sends them as they arrive. The
	// channel is closed when ctx is cancelled.
	Stream(ctx context.Context, cfg Config) (<-chan model.Report, error)

	// Query fetches a batch of reports matching the given parameters.
	Query(ctx context.Context, cfg Config, params QueryParams) ([]model.Report, error)
}

// Config holds source-specific settings.
type Config struct {
	Provider string
	Path     string
	Extra    map[string]string
}

// QueryParams defines filters for one-shot queries.
type QueryParams struct {
	Since time.Time
	Until time.Time
	Limit int
	// Pattern is a doublestar glob relative to the source root.
	Pattern string
}
