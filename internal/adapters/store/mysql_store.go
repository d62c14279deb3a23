package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ConfigStore and
// AlertRepository interfaces, for deployments where several gateway
// instances share configuration.
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to MySQL using the given DSN and creates the
// schema if it doesn't exist.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS policies (
			tenant_id VARCHAR(128) PRIMARY KEY,
			id VARCHAR(128) NOT NULL,
			block_threshold DOUBLE NOT NULL,
			quarantine_threshold DOUBLE NOT NULL,
			block_new_domains BOOLEAN NOT NULL,
			block_macros BOOLEAN NOT NULL,
			allow_external_images BOOLEAN NOT NULL,
			enable_real_time_alerts BOOLEAN NOT NULL,
			created_at VARCHAR(64) NOT NULL,
			updated_at VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS filter_rules (
			id VARCHAR(128) PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL,
			name VARCHAR(255) NOT NULL,
			rule_type VARCHAR(32) NOT NULL,
			pattern TEXT NOT NULL,
			action VARCHAR(32) NOT NULL,
			enabled BOOLEAN NOT NULL,
			priority INT NOT NULL,
			description TEXT,
			created_at VARCHAR(64) NOT NULL,
			updated_at VARCHAR(64) NOT NULL,
			INDEX idx_rules_tenant (tenant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(128) PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL,
			message_id VARCHAR(255),
			severity VARCHAR(32) NOT NULL,
			category VARCHAR(32) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			acknowledged BOOLEAN NOT NULL,
			created_at VARCHAR(64) NOT NULL,
			INDEX idx_alerts_tenant (tenant_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{sqlStore{db: db, logger: logger}}, nil
}

// Stop closes the database connection.
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
