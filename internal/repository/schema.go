package repository

// Schema definitions for the TrustHub database.
// Compatible with both SQLite and PostgreSQL.

const schemaSubjectEvents = `
CREATE TABLE IF NOT EXISTS subject_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    type TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subject_events_tenant ON subject_events(tenant_id);
CREATE INDEX IF NOT EXISTS idx_subject_events_subject ON subject_events(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_subject_events_timestamp ON subject_events(tenant_id, timestamp);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_tenant ON rule_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(tenant_id, enabled);
`

const schemaScoreEvaluations = `
CREATE TABLE IF NOT EXISTS score_evaluations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    score REAL NOT NULL,
    level TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    breakdown TEXT NOT NULL,
    components TEXT NOT NULL,
    tips TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_evaluations_tenant ON score_evaluations(tenant_id);
CREATE INDEX IF NOT EXISTS idx_score_evaluations_subject ON score_evaluations(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_score_evaluations_timestamp ON score_evaluations(tenant_id, timestamp);
`

const schemaFraudEvaluations = `
CREATE TABLE IF NOT EXISTS fraud_evaluations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    status TEXT NOT NULL,
    score REAL NOT NULL,
    probability REAL NOT NULL DEFAULT 0,
    risk_level TEXT,
    factors TEXT,
    timestamp TIMESTAMP NOT NULL,
    rule_results TEXT NOT NULL,
    profile_results TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_evaluations_tenant ON fraud_evaluations(tenant_id);
CREATE INDEX IF NOT EXISTS idx_fraud_evaluations_subject ON fraud_evaluations(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_fraud_evaluations_status ON fraud_evaluations(tenant_id, status);
`

// schemaProfiles defines the risk profiles table.
// Profiles group multiple rules with weights to calculate composite risk scores.
// Compatible with both SQLite and PostgreSQL.
const schemaProfiles = `
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    rules TEXT NOT NULL,
    alert_threshold REAL NOT NULL DEFAULT 0.6,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_profiles_tenant ON profiles(tenant_id);
CREATE INDEX IF NOT EXISTS idx_profiles_enabled ON profiles(tenant_id, enabled);
CREATE INDEX IF NOT EXISTS idx_profiles_name ON profiles(tenant_id, name);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    target_id TEXT,
    score REAL NOT NULL,
    details TEXT,
    created_at TIMESTAMP NOT NULL,
    resolved INTEGER NOT NULL DEFAULT 0,
    resolved_at TIMESTAMP,
    resolved_by TEXT,
    resolution_notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_alerts_tenant ON alerts(tenant_id);
CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(tenant_id, resolved);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSubjectEvents,
		schemaRuleConfigs,
		schemaScoreEvaluations,
		schemaFraudEvaluations,
		schemaProfiles,
		schemaAlerts,
	}
}
