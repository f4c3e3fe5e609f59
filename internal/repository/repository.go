// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// RecordSubjectEvent stores a subject event with tenant isolation.
func (r *SQLRepository) RecordSubjectEvent(ctx context.Context, tenantID string, event *domain.SubjectEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if event.SubjectID == "" {
		return fmt.Errorf("%w: subjectID is required", ErrInvalidInput)
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO subject_events (id, tenant_id, subject_id, type, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		id, tenantID, event.SubjectID, event.Type, ts,
	)
	return err
}

// CountSubjectEvents counts events for a subject since a timestamp.
// An empty eventType counts events of any type.
func (r *SQLRepository) CountSubjectEvents(ctx context.Context, tenantID string, subjectID string, eventType string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM subject_events
		WHERE tenant_id = ? AND subject_id = ? AND timestamp >= ?
	`
	args := []any{tenantID, subjectID, since}

	if eventType != "" {
		query += " AND type = ?"
		args = append(args, eventType)
	}

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// SaveRuleConfig stores a rule configuration with tenant isolation.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, tenantID string, rule *domain.RuleConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), rule.Weight, enabled,
		now, now,
	)
	return err
}

// GetRuleConfig retrieves a rule configuration with tenant isolation.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*domain.RuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM rule_configs
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.RuleConfig
	var bands string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	json.Unmarshal([]byte(bands), &cfg.Bands)

	return &cfg, nil
}

// ListRuleConfigs retrieves all active rule configurations for a tenant.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context, tenantID string) ([]*domain.RuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM rule_configs
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var bands string
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		json.Unmarshal([]byte(bands), &cfg.Bands)
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveScoreEvaluation stores a trust score evaluation with tenant isolation.
func (r *SQLRepository) SaveScoreEvaluation(ctx context.Context, tenantID string, eval *domain.ScoreEvaluation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	breakdown, _ := json.Marshal(eval.Breakdown)
	components, _ := json.Marshal(eval.Components)
	tips, _ := json.Marshal(eval.Tips)
	metadata, _ := json.Marshal(eval.Metadata)

	query := `
		INSERT INTO score_evaluations (
			id, tenant_id, subject_id, score, level, timestamp,
			breakdown, components, tips, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, tenantID, eval.SubjectID, eval.Score, string(eval.Level), eval.Timestamp,
		string(breakdown), string(components), string(tips), string(metadata),
	)
	return err
}

// GetScoreEvaluation retrieves a score evaluation by ID with tenant isolation.
func (r *SQLRepository) GetScoreEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.ScoreEvaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, subject_id, score, level, timestamp,
			   breakdown, components, tips, metadata
		FROM score_evaluations
		WHERE tenant_id = ? AND id = ?
	`

	return r.scanScoreEvaluation(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, evalID))
}

// LatestScoreEvaluation retrieves the most recent score evaluation for a subject.
func (r *SQLRepository) LatestScoreEvaluation(ctx context.Context, tenantID string, subjectID string) (*domain.ScoreEvaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, subject_id, score, level, timestamp,
			   breakdown, components, tips, metadata
		FROM score_evaluations
		WHERE tenant_id = ? AND subject_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	return r.scanScoreEvaluation(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, subjectID))
}

func (r *SQLRepository) scanScoreEvaluation(row *sql.Row) (*domain.ScoreEvaluation, error) {
	var eval domain.ScoreEvaluation
	var level, breakdown, components, tips, metadata string

	err := row.Scan(
		&eval.ID, &eval.TenantID, &eval.SubjectID, &eval.Score, &level, &eval.Timestamp,
		&breakdown, &components, &tips, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	eval.Level = domain.TrustLevel(level)
	json.Unmarshal([]byte(breakdown), &eval.Breakdown)
	json.Unmarshal([]byte(components), &eval.Components)
	json.Unmarshal([]byte(tips), &eval.Tips)
	json.Unmarshal([]byte(metadata), &eval.Metadata)

	return &eval, nil
}

// SaveFraudEvaluation stores a fraud evaluation result with tenant isolation.
func (r *SQLRepository) SaveFraudEvaluation(ctx context.Context, tenantID string, eval *domain.FraudEvaluation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	ruleResults, _ := json.Marshal(eval.RuleResults)
	profileResults, _ := json.Marshal(eval.ProfileResults)
	factors, _ := json.Marshal(eval.Factors)
	metadata, _ := json.Marshal(eval.Metadata)

	query := `
		INSERT INTO fraud_evaluations (
			id, tenant_id, subject_id, status, score, probability, risk_level,
			factors, timestamp, rule_results, profile_results, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, tenantID, eval.SubjectID, eval.Status, eval.Score,
		eval.Probability, eval.RiskLevel,
		string(factors), eval.Timestamp,
		string(ruleResults), string(profileResults), string(metadata),
	)
	return err
}

// GetFraudEvaluation retrieves a fraud evaluation by ID with tenant isolation.
func (r *SQLRepository) GetFraudEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.FraudEvaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, subject_id, status, score, probability, risk_level,
			   factors, timestamp, rule_results, profile_results, metadata
		FROM fraud_evaluations
		WHERE tenant_id = ? AND id = ?
	`

	var eval domain.FraudEvaluation
	var factors, ruleResults, profileResults, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, evalID).Scan(
		&eval.ID, &eval.TenantID, &eval.SubjectID, &eval.Status, &eval.Score,
		&eval.Probability, &eval.RiskLevel,
		&factors, &eval.Timestamp,
		&ruleResults, &profileResults, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(factors), &eval.Factors)
	json.Unmarshal([]byte(ruleResults), &eval.RuleResults)
	json.Unmarshal([]byte(profileResults), &eval.ProfileResults)
	json.Unmarshal([]byte(metadata), &eval.Metadata)

	return &eval, nil
}

// SaveProfile stores a risk profile configuration with tenant isolation.
func (r *SQLRepository) SaveProfile(ctx context.Context, tenantID string, profile *domain.RiskProfile) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	rules, _ := json.Marshal(profile.Rules)

	enabled := 0
	if profile.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO profiles (
			id, tenant_id, name, description, version, rules, alert_threshold, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			rules = excluded.rules,
			alert_threshold = excluded.alert_threshold,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		profile.ID, tenantID, profile.Name, profile.Description,
		profile.Version, string(rules), profile.AlertThreshold, enabled,
		now, now,
	)
	return err
}

// GetProfile retrieves a risk profile configuration with tenant isolation.
func (r *SQLRepository) GetProfile(ctx context.Context, tenantID string, profileID string) (*domain.RiskProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, rules, alert_threshold, enabled, created_at, updated_at
		FROM profiles
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var p domain.RiskProfile
	var rules string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, profileID).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description,
		&p.Version, &rules, &p.AlertThreshold, &enabled,
		&p.CreatedAt, &p.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(rules), &p.Rules); err != nil {
		return nil, fmt.Errorf("failed to parse profile rules: %w", err)
	}

	return &p, nil
}

// ListProfiles retrieves all active risk profiles for a tenant.
func (r *SQLRepository) ListProfiles(ctx context.Context, tenantID string) ([]*domain.RiskProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, rules, alert_threshold, enabled, created_at, updated_at
		FROM profiles
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.RiskProfile
	for rows.Next() {
		var p domain.RiskProfile
		var rules string
		var enabled int

		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &p.Description,
			&p.Version, &rules, &p.AlertThreshold, &enabled,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}

		p.Enabled = enabled == 1
		if err := json.Unmarshal([]byte(rules), &p.Rules); err != nil {
			return nil, fmt.Errorf("failed to parse profile rules for %s: %w", p.ID, err)
		}
		profiles = append(profiles, &p)
	}

	return profiles, rows.Err()
}

// DeleteProfile soft-deletes a risk profile by setting enabled = 0.
func (r *SQLRepository) DeleteProfile(ctx context.Context, tenantID string, profileID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE profiles
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, profileID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAlert stores or updates an alert with tenant isolation.
// Resolving an alert re-saves it with the resolution fields set.
func (r *SQLRepository) SaveAlert(ctx context.Context, tenantID string, alert *domain.Alert) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	details, _ := json.Marshal(alert.Details)

	resolved := 0
	if alert.Resolved {
		resolved = 1
	}

	query := `
		INSERT INTO alerts (
			id, tenant_id, type, severity, subject_id, target_id, score,
			details, created_at, resolved, resolved_at, resolved_by, resolution_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resolved = excluded.resolved,
			resolved_at = excluded.resolved_at,
			resolved_by = excluded.resolved_by,
			resolution_notes = excluded.resolution_notes
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, tenantID, string(alert.Type), string(alert.Severity),
		alert.SubjectID, alert.TargetID, alert.Score,
		string(details), alert.CreatedAt, resolved,
		alert.ResolvedAt, alert.ResolvedBy, alert.ResolutionNotes,
	)
	return err
}

// ListAlerts retrieves alerts for a tenant, newest first.
func (r *SQLRepository) ListAlerts(ctx context.Context, tenantID string, includeResolved bool, limit int) ([]*domain.Alert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, tenant_id, type, severity, subject_id, target_id, score,
			   details, created_at, resolved, resolved_at, resolved_by, resolution_notes
		FROM alerts
		WHERE tenant_id = ?
	`
	if !includeResolved {
		query += " AND resolved = 0"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		var alertType, severity, details string
		var targetID, resolvedBy, notes sql.NullString
		var resolved int
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&a.ID, &a.TenantID, &alertType, &severity,
			&a.SubjectID, &targetID, &a.Score,
			&details, &a.CreatedAt, &resolved,
			&resolvedAt, &resolvedBy, &notes,
		); err != nil {
			return nil, err
		}

		a.Type = domain.AlertType(alertType)
		a.Severity = domain.AlertSeverity(severity)
		a.TargetID = targetID.String
		a.Resolved = resolved == 1
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		a.ResolvedBy = resolvedBy.String
		a.ResolutionNotes = notes.String
		if details != "" {
			json.Unmarshal([]byte(details), &a.Details)
		}

		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
