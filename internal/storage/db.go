package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenOptions holds connection options for Open.
type OpenOptions struct {
	Driver          string // sqlite or postgres
	SQLitePath      string
	SQLiteJournal   string
	PostgresDSN     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds; 0 means unlimited
}

// Open opens a database connection for the configured driver.
func Open(opts OpenOptions) (*sql.DB, error) {
	switch opts.Driver {
	case "sqlite":
		journal := opts.SQLiteJournal
		if journal == "" {
			journal = "WAL"
		}
		dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_foreign_keys=on", opts.SQLitePath, journal)
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite writers must be serialized
		db.SetMaxOpenConns(1)
		return db, nil

	case "postgres":
		db, err := sql.Open("postgres", opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %q", opts.Driver)
	}
}

// schema holds the table definitions for the feedback engine. The DDL sticks
// to the subset shared by SQLite and Postgres so either driver can run it.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		dedupe_key TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		author_email TEXT,
		author_username TEXT,
		content TEXT NOT NULL,
		product_area TEXT,
		customer_tier TEXT NOT NULL,
		urgency TEXT NOT NULL,
		urgency_score INTEGER NOT NULL,
		value_score INTEGER NOT NULL,
		engagement_score REAL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP,
		ingested_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sentiment_analyses (
		id TEXT PRIMARY KEY,
		feedback_id TEXT NOT NULL UNIQUE REFERENCES feedback(id),
		sentiment TEXT NOT NULL,
		urgency TEXT NOT NULL,
		summary TEXT NOT NULL,
		value_score INTEGER NOT NULL,
		confidence REAL NOT NULL,
		analyzed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS themes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_themes (
		feedback_id TEXT NOT NULL REFERENCES feedback(id),
		theme_id TEXT NOT NULL REFERENCES themes(id),
		PRIMARY KEY (feedback_id, theme_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_urgency_score ON feedback(urgency_score)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_sentiment ON sentiment_analyses(sentiment)`,
}

// Migrate creates the feedback engine schema if it does not exist.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
