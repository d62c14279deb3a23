package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// PostgresStore is a PostgreSQL implementation of the ConfigStore and
// AlertRepository interfaces, backed by a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to Postgres and runs migrations.
func NewPostgresStore(connString string, logger *zap.Logger) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS policies (
			tenant_id TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			block_threshold DOUBLE PRECISION NOT NULL,
			quarantine_threshold DOUBLE PRECISION NOT NULL,
			block_new_domains BOOLEAN NOT NULL,
			block_macros BOOLEAN NOT NULL,
			allow_external_images BOOLEAN NOT NULL,
			enable_real_time_alerts BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS filter_rules (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			rule_type TEXT NOT NULL,
			pattern TEXT NOT NULL,
			action TEXT NOT NULL,
			enabled BOOLEAN NOT NULL,
			priority INT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_tenant ON filter_rules(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			acknowledged BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_tenant ON alerts(tenant_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetPolicy(ctx context.Context, tenantID string) (*core.Policy, error) {
	var p core.Policy
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, block_threshold, quarantine_threshold,
		       block_new_domains, block_macros, allow_external_images,
		       enable_real_time_alerts, created_at, updated_at
		FROM policies
		WHERE tenant_id = $1
	`, tenantID).Scan(&p.ID, &p.TenantID, &p.BlockThreshold, &p.QuarantineThreshold,
		&p.BlockNewDomains, &p.BlockMacros, &p.AllowExternalImages,
		&p.EnableRealTimeAlerts, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.DefaultPolicy(tenantID), nil
		}
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) SavePolicy(ctx context.Context, policy *core.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO policies (tenant_id, id, block_threshold, quarantine_threshold,
			block_new_domains, block_macros, allow_external_images,
			enable_real_time_alerts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id) DO UPDATE SET
			id = EXCLUDED.id,
			block_threshold = EXCLUDED.block_threshold,
			quarantine_threshold = EXCLUDED.quarantine_threshold,
			block_new_domains = EXCLUDED.block_new_domains,
			block_macros = EXCLUDED.block_macros,
			allow_external_images = EXCLUDED.allow_external_images,
			enable_real_time_alerts = EXCLUDED.enable_real_time_alerts,
			updated_at = EXCLUDED.updated_at
	`, policy.TenantID, policy.ID, policy.BlockThreshold, policy.QuarantineThreshold,
		policy.BlockNewDomains, policy.BlockMacros, policy.AllowExternalImages,
		policy.EnableRealTimeAlerts, policy.CreatedAt, policy.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRules(ctx context.Context, tenantID string) ([]core.ContentFilterRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, rule_type, pattern, action, enabled,
		       priority, description, created_at, updated_at
		FROM filter_rules
		WHERE tenant_id = $1
		ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.ContentFilterRule
	for rows.Next() {
		var r core.ContentFilterRule
		var ruleType, action string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &ruleType, &r.Pattern,
			&action, &r.Enabled, &r.Priority, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Type = core.RuleType(ruleType)
		r.Action = core.RuleAction(action)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func (s *PostgresStore) GetRule(ctx context.Context, tenantID, ruleID string) (*core.ContentFilterRule, error) {
	var r core.ContentFilterRule
	var ruleType, action string
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, rule_type, pattern, action, enabled,
		       priority, description, created_at, updated_at
		FROM filter_rules
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, ruleID).Scan(&r.ID, &r.TenantID, &r.Name, &ruleType, &r.Pattern,
		&action, &r.Enabled, &r.Priority, &r.Description, &r.CreatedAt, &r.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}
	r.Type = core.RuleType(ruleType)
	r.Action = core.RuleAction(action)
	return &r, nil
}

func (s *PostgresStore) CreateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO filter_rules (id, tenant_id, name, rule_type, pattern,
			action, enabled, priority, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rule.ID, rule.TenantID, rule.Name, string(rule.Type), rule.Pattern,
		string(rule.Action), rule.Enabled, rule.Priority, rule.Description,
		rule.CreatedAt, rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE filter_rules
		SET name = $1, rule_type = $2, pattern = $3, action = $4, enabled = $5,
		    priority = $6, description = $7, updated_at = $8
		WHERE tenant_id = $9 AND id = $10
	`, rule.Name, string(rule.Type), rule.Pattern, string(rule.Action), rule.Enabled,
		rule.Priority, rule.Description, rule.UpdatedAt, rule.TenantID, rule.ID)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM filter_rules
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetRuleEnabled(ctx context.Context, tenantID, ruleID string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE filter_rules
		SET enabled = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4
	`, enabled, time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return fmt.Errorf("failed to toggle rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendAlert(ctx context.Context, alert *core.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, tenant_id, message_id, severity, category,
			title, description, acknowledged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, alert.ID, alert.TenantID, alert.MessageID, string(alert.Severity),
		string(alert.Category), alert.Title, alert.Description, alert.Acknowledged,
		alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, alertID string) (*core.Alert, error) {
	var a core.Alert
	var severity, category string
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, message_id, severity, category, title,
		       description, acknowledged, created_at
		FROM alerts
		WHERE id = $1
	`, alertID).Scan(&a.ID, &a.TenantID, &a.MessageID, &severity, &category,
		&a.Title, &a.Description, &a.Acknowledged, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	a.Severity = core.AlertSeverity(severity)
	a.Category = core.AlertCategory(category)
	return &a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, tenantID string, unacknowledgedOnly bool) ([]*core.Alert, error) {
	query := `
		SELECT id, tenant_id, message_id, severity, category, title,
		       description, acknowledged, created_at
		FROM alerts
		WHERE tenant_id = $1
	`
	if unacknowledgedOnly {
		query += " AND acknowledged = false"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*core.Alert
	for rows.Next() {
		var a core.Alert
		var severity, category string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.MessageID, &severity, &category,
			&a.Title, &a.Description, &a.Acknowledged, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = core.AlertSeverity(severity)
		a.Category = core.AlertCategory(category)
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, alertID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts
		SET acknowledged = true
		WHERE id = $1 AND acknowledged = false
	`, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := s.GetAlert(ctx, alertID); err != nil {
		return false, err
	}
	return false, nil
}

// Stop closes the connection pool.
func (s *PostgresStore) Stop() {
	s.pool.Close()
}
