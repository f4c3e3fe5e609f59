package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Subject event operations (feed velocity counters)
	RecordSubjectEvent(ctx context.Context, tenantID string, event *SubjectEvent) error
	CountSubjectEvents(ctx context.Context, tenantID string, subjectID string, eventType string, since time.Time) (int64, error)

	// Rule configuration operations
	SaveRuleConfig(ctx context.Context, tenantID string, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context, tenantID string) ([]*RuleConfig, error)

	// Trust score evaluation results
	SaveScoreEvaluation(ctx context.Context, tenantID string, eval *ScoreEvaluation) error
	GetScoreEvaluation(ctx context.Context, tenantID string, evalID string) (*ScoreEvaluation, error)
	LatestScoreEvaluation(ctx context.Context, tenantID string, subjectID string) (*ScoreEvaluation, error)

	// Fraud evaluation results
	SaveFraudEvaluation(ctx context.Context, tenantID string, eval *FraudEvaluation) error
	GetFraudEvaluation(ctx context.Context, tenantID string, evalID string) (*FraudEvaluation, error)

	// Risk profile configuration operations
	SaveProfile(ctx context.Context, tenantID string, profile *RiskProfile) error
	GetProfile(ctx context.Context, tenantID string, profileID string) (*RiskProfile, error)
	ListProfiles(ctx context.Context, tenantID string) ([]*RiskProfile, error)
	DeleteProfile(ctx context.Context, tenantID string, profileID string) error

	// Alert persistence
	SaveAlert(ctx context.Context, tenantID string, alert *Alert) error
	ListAlerts(ctx context.Context, tenantID string, includeResolved bool, limit int) ([]*Alert, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
