package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ConfigStore and
// AlertRepository interfaces, for single-node deployments that need
// configuration to survive restarts.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens the database at dbPath and creates the schema if it
// doesn't exist.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS policies (
			tenant_id TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			block_threshold REAL NOT NULL,
			quarantine_threshold REAL NOT NULL,
			block_new_domains BOOLEAN NOT NULL,
			block_macros BOOLEAN NOT NULL,
			allow_external_images BOOLEAN NOT NULL,
			enable_real_time_alerts BOOLEAN NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS filter_rules (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			rule_type TEXT NOT NULL,
			pattern TEXT NOT NULL,
			action TEXT NOT NULL,
			enabled BOOLEAN NOT NULL,
			priority INTEGER NOT NULL,
			description TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_tenant ON filter_rules(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			message_id TEXT,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			acknowledged BOOLEAN NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_tenant ON alerts(tenant_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{sqlStore{db: db, logger: logger}}, nil
}

// Stop closes the database connection.
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
