package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the CRUD paths shared by the SQLite and MySQL backends.
// Both drivers use ? placeholders; timestamps are stored as RFC 3339 text
// so the two schemas scan identically.
type sqlStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func (s *sqlStore) GetPolicy(ctx context.Context, tenantID string) (*core.Policy, error) {
	var p core.Policy
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, block_threshold, quarantine_threshold,
		       block_new_domains, block_macros, allow_external_images,
		       enable_real_time_alerts, created_at, updated_at
		FROM policies
		WHERE tenant_id = ?
	`, tenantID).Scan(&p.ID, &p.TenantID, &p.BlockThreshold, &p.QuarantineThreshold,
		&p.BlockNewDomains, &p.BlockMacros, &p.AllowExternalImages,
		&p.EnableRealTimeAlerts, &createdAt, &updatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			// A tenant that has never saved a policy gets the default.
			return core.DefaultPolicy(tenantID), nil
		}
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}

	p.CreatedAt = parseTimestamp(createdAt, s.logger)
	p.UpdatedAt = parseTimestamp(updatedAt, s.logger)
	return &p, nil
}

func (s *sqlStore) SavePolicy(ctx context.Context, policy *core.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO policies (tenant_id, id, block_threshold, quarantine_threshold,
			block_new_domains, block_macros, allow_external_images,
			enable_real_time_alerts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, policy.TenantID, policy.ID, policy.BlockThreshold, policy.QuarantineThreshold,
		policy.BlockNewDomains, policy.BlockMacros, policy.AllowExternalImages,
		policy.EnableRealTimeAlerts,
		policy.CreatedAt.UTC().Format(time.RFC3339), policy.UpdatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *sqlStore) ListRules(ctx context.Context, tenantID string) ([]core.ContentFilterRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, rule_type, pattern, action, enabled,
		       priority, description, created_at, updated_at
		FROM filter_rules
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.ContentFilterRule
	for rows.Next() {
		r, err := scanRule(rows, s.logger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func (s *sqlStore) GetRule(ctx context.Context, tenantID, ruleID string) (*core.ContentFilterRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, rule_type, pattern, action, enabled,
		       priority, description, created_at, updated_at
		FROM filter_rules
		WHERE tenant_id = ? AND id = ?
	`, tenantID, ruleID)

	r, err := scanRule(row, s.logger)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *sqlStore) CreateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_rules (id, tenant_id, name, rule_type, pattern,
			action, enabled, priority, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.TenantID, rule.Name, string(rule.Type), rule.Pattern,
		string(rule.Action), rule.Enabled, rule.Priority, rule.Description,
		rule.CreatedAt.UTC().Format(time.RFC3339), rule.UpdatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (s *sqlStore) UpdateRule(ctx context.Context, rule *core.ContentFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE filter_rules
		SET name = ?, rule_type = ?, pattern = ?, action = ?, enabled = ?,
		    priority = ?, description = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, rule.Name, string(rule.Type), rule.Pattern, string(rule.Action), rule.Enabled,
		rule.Priority, rule.Description, rule.UpdatedAt.UTC().Format(time.RFC3339),
		rule.TenantID, rule.ID)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return checkAffected(res)
}

func (s *sqlStore) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM filter_rules
		WHERE tenant_id = ? AND id = ?
	`, tenantID, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return checkAffected(res)
}

func (s *sqlStore) SetRuleEnabled(ctx context.Context, tenantID, ruleID string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE filter_rules
		SET enabled = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, enabled, time.Now().UTC().Format(time.RFC3339), tenantID, ruleID)
	if err != nil {
		return fmt.Errorf("failed to toggle rule: %w", err)
	}
	return checkAffected(res)
}

func (s *sqlStore) AppendAlert(ctx context.Context, alert *core.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, tenant_id, message_id, severity, category,
			title, description, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.TenantID, alert.MessageID, string(alert.Severity),
		string(alert.Category), alert.Title, alert.Description, alert.Acknowledged,
		alert.CreatedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *sqlStore) GetAlert(ctx context.Context, alertID string) (*core.Alert, error) {
	var a core.Alert
	var severity, category, createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, message_id, severity, category, title,
		       description, acknowledged, created_at
		FROM alerts
		WHERE id = ?
	`, alertID).Scan(&a.ID, &a.TenantID, &a.MessageID, &severity, &category,
		&a.Title, &a.Description, &a.Acknowledged, &createdAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}

	a.Severity = core.AlertSeverity(severity)
	a.Category = core.AlertCategory(category)
	a.CreatedAt = parseTimestamp(createdAt, s.logger)
	return &a, nil
}

func (s *sqlStore) ListAlerts(ctx context.Context, tenantID string, unacknowledgedOnly bool) ([]*core.Alert, error) {
	query := `
		SELECT id, tenant_id, message_id, severity, category, title,
		       description, acknowledged, created_at
		FROM alerts
		WHERE tenant_id = ?
	`
	if unacknowledgedOnly {
		query += " AND acknowledged = false"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*core.Alert
	for rows.Next() {
		var a core.Alert
		var severity, category, createdAt string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.MessageID, &severity, &category,
			&a.Title, &a.Description, &a.Acknowledged, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = core.AlertSeverity(severity)
		a.Category = core.AlertCategory(category)
		a.CreatedAt = parseTimestamp(createdAt, s.logger)
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func (s *sqlStore) AcknowledgeAlert(ctx context.Context, alertID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET acknowledged = true
		WHERE id = ? AND acknowledged = false
	`, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "already acknowledged" from "no such alert".
	if _, err := s.GetAlert(ctx, alertID); err != nil {
		return false, err
	}
	return false, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner, logger *zap.Logger) (*core.ContentFilterRule, error) {
	var r core.ContentFilterRule
	var ruleType, action, createdAt, updatedAt string

	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &ruleType, &r.Pattern, &action,
		&r.Enabled, &r.Priority, &r.Description, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	r.Type = core.RuleType(ruleType)
	r.Action = core.RuleAction(action)
	r.CreatedAt = parseTimestamp(createdAt, logger)
	r.UpdatedAt = parseTimestamp(updatedAt, logger)
	return &r, nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func parseTimestamp(value string, logger *zap.Logger) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Warn("Failed to parse stored timestamp", zap.String("value", value), zap.Error(err))
		return time.Time{}
	}
	return t
}
