// Package mysql persists prediction records to a MySQL table.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

// DefaultTable is the table records are written to.
const DefaultTable = "blotter_predictions"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Option configures a MySQL Output.
type Option func(*Output)

// WithTable overrides the destination table.
func WithTable(name string) Option {
	return func(o *Output) { o.table = name }
}

// WithVerbosity sets how much of each prediction is stored. Default: Full.
func WithVerbosity(v compactor.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Output) { o.logger = l }
}

// Output upserts records keyed by record ID.
type Output struct {
	db        *sql.DB
	table     string
	verbosity compactor.Verbosity
	logger    *slog.Logger
	insert    string
}

// NormalizeDSN parses a go-sql-driver DSN and forces the settings the sink
// relies on: parseTime and UTC timestamps.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql output: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Open connects to dsn, verifies the connection, and ensures the table exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Output, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql output: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql output: ping: %w", err)
	}

	o, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := o.CreateTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return o, nil
}

// New wraps an open database handle. Close closes db.
func New(db *sql.DB, opts ...Option) (*Output, error) {
	o := &Output{
		db:        db,
		table:     DefaultTable,
		verbosity: compactor.Full,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if !tableName.MatchString(o.table) {
		return nil, fmt.Errorf("mysql output: invalid table name %q", o.table)
	}
	o.insert = upsertQuery(o.table)
	return o, nil
}

// CreateTable creates the destination table if it does not exist.
func (o *Output) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id            VARCHAR(36)  NOT NULL,
		report_number VARCHAR(64)  NOT NULL DEFAULT '',
		source        VARCHAR(512) NOT NULL DEFAULT '',
		category      VARCHAR(128) NOT NULL DEFAULT '',
		severity      TINYINT      NULL,
		confidence    DOUBLE       NOT NULL DEFAULT 0,
		summary       TEXT,
		fields        JSON,
		features      JSON,
		error         TEXT,
		duplicates    INT          NOT NULL DEFAULT 0,
		processed_at  DATETIME(6)  NOT NULL,
		PRIMARY KEY (id),
		INDEX idx_report_number (report_number),
		INDEX idx_category (category, processed_at)
	);`, o.table)

	if _, err := o.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("mysql output: create table %s: %w", o.table, err)
	}
	o.logger.Debug("mysql table ready", "table", o.table)
	return nil
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s
		(id, report_number, source, category, severity, confidence, summary, fields, features, error, duplicates, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		report_number = VALUES(report_number), source = VALUES(source), category = VALUES(category),
		severity = VALUES(severity), confidence = VALUES(confidence), summary = VALUES(summary),
		fields = VALUES(fields), features = VALUES(features), error = VALUES(error),
		duplicates = VALUES(duplicates), processed_at = VALUES(processed_at)`, table)
}

// Write upserts the record.
func (o *Output) Write(ctx context.Context, record model.Record) error {
	args, err := rowArgs(output.FormatRecord(record, o.verbosity))
	if err != nil {
		return err
	}
	if _, err := o.db.ExecContext(ctx, o.insert, args...); err != nil {
		return fmt.Errorf("mysql output: insert %s: %w", record.ID, err)
	}
	return nil
}

// rowArgs maps a record to the upsert's positional arguments. Unknown
// severity and absent fields or features are stored as NULL.
func rowArgs(r model.Record) ([]any, error) {
	var severity sql.NullInt16
	if r.Prediction.Severity.Known() {
		severity = sql.NullInt16{Int16: int16(r.Prediction.Severity), Valid: true}
	}

	var fields, features sql.NullString
	if r.Prediction.Fields != nil {
		data, err := json.Marshal(r.Prediction.Fields)
		if err != nil {
			return nil, fmt.Errorf("mysql output: marshal fields: %w", err)
		}
		fields = sql.NullString{String: string(data), Valid: true}
	}
	if r.Prediction.Features != nil {
		data, err := json.Marshal(r.Prediction.Features)
		if err != nil {
			return nil, fmt.Errorf("mysql output: marshal features: %w", err)
		}
		features = sql.NullString{String: string(data), Valid: true}
	}

	return []any{
		r.ID,
		r.ReportNumber,
		r.Source,
		r.Prediction.Category,
		severity,
		r.Prediction.Confidence,
		r.Prediction.Summary,
		fields,
		features,
		sql.NullString{String: r.Error, Valid: r.Error != ""},
		r.Duplicates,
		r.ProcessedAt.UTC(),
	}, nil
}

// Close closes the database handle.
func (o *Output) Close() error {
	return o.db.Close()
}
