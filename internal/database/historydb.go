package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// HistoryDB provides SQLite-based storage for analysis runs.
// It manages connection pooling and provides methods for saving and
// querying run history per log source.
//
// Design decision: We store the full summary as JSON next to a few
// headline columns rather than normalizing every view into tables.
// The summary is a read-only value object; queries only ever need the
// headline numbers, and comparisons deserialize whole summaries anyway.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// RunMetadata is the headline view of one stored run, used for
// history listings without deserializing full summaries.
type RunMetadata struct {
	// ID is the run's UUID.
	ID string

	// Source names the analyzed log source.
	Source string

	// AnalyzedAt is when the run finished.
	AnalyzedAt time.Time

	// RecordCount, BotRequests and BotSharePercent are the run's
	// headline numbers.
	RecordCount     int64
	BotRequests     int64
	BotSharePercent float64

	// TrapCount is the number of crawl-trap findings.
	TrapCount int
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "seolog.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per analysis run.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		analyzed_at DATETIME NOT NULL,
		record_count INTEGER NOT NULL,
		bot_requests INTEGER NOT NULL,
		bot_share_percent REAL NOT NULL,
		trap_count INTEGER NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, analyzed_at);
	`

	_, err := hdb.db.Exec(schema)
	return err
}

// SaveRun persists a completed analysis run and returns its generated
// run ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, summary *model.AnalysisSummary) (string, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to serialize summary: %w", err)
	}

	id := uuid.NewString()

	query := `
	INSERT INTO runs (id, source, analyzed_at, record_count, bot_requests, bot_share_percent, trap_count, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		id,
		summary.Source,
		summary.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		summary.RecordCount,
		summary.BotRequests,
		summary.BotSharePercent,
		len(summary.TrapFindings),
		string(summaryJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	return id, nil
}

// GetLatestRun retrieves the most recent run for a source. Returns
// nil without error when the source has no history.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, source string) (*model.AnalysisSummary, error) {
	query := `
	SELECT summary_json FROM runs
	WHERE source = ?
	ORDER BY analyzed_at DESC
	LIMIT 1
	`

	var summaryJSON string
	err := hdb.db.QueryRowContext(ctx, query, source).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return decodeSummary(summaryJSON)
}

// GetRunByID retrieves one run by its UUID. Returns nil without error
// when no run has that ID.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id string) (*model.AnalysisSummary, error) {
	var summaryJSON string
	err := hdb.db.QueryRowContext(ctx,
		"SELECT summary_json FROM runs WHERE id = ?", id).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return decodeSummary(summaryJSON)
}

// ListSources returns every distinct source with stored history,
// sorted by name.
func (hdb *HistoryDB) ListSources(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx,
		"SELECT DISTINCT source FROM runs ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// GetRunHistory returns the metadata of all runs for a source, newest
// first.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, source string) ([]RunMetadata, error) {
	query := `
	SELECT id, source, analyzed_at, record_count, bot_requests, bot_share_percent, trap_count
	FROM runs
	WHERE source = ?
	ORDER BY analyzed_at DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var history []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var analyzedAt string
		if err := rows.Scan(&meta.ID, &meta.Source, &analyzedAt,
			&meta.RecordCount, &meta.BotRequests, &meta.BotSharePercent, &meta.TrapCount); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}
		meta.AnalyzedAt = parseTimestamp(analyzedAt)
		history = append(history, meta)
	}

	return history, rows.Err()
}

func decodeSummary(summaryJSON string) (*model.AnalysisSummary, error) {
	var summary model.AnalysisSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}

// parseTimestamp parses a stored timestamp, returning the zero time on
// failure rather than failing the whole listing.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
