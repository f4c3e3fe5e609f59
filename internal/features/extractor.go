// Package features turns raw behavioral, account, transaction and
// network records into flat numeric feature vectors for fraud
// evaluation.
package features

import (
	"math"
	"time"
)

// Vector is a flat feature map. Missing features read as zero.
type Vector map[string]float64

// Get returns a feature value, or def when absent.
func (v Vector) Get(name string, def float64) float64 {
	if val, ok := v[name]; ok {
		return val
	}
	return def
}

// Account holds account-level raw inputs.
type Account struct {
	ID                  string    `json:"id"`
	CreatedAt           time.Time `json:"createdAt"`
	ProfileCompleteness float64   `json:"profileCompleteness"`
	VerificationLevel   int       `json:"verificationLevel"`
	EmailVerified       bool      `json:"emailVerified"`
	PhoneVerified       bool      `json:"phoneVerified"`
}

// ActivityEntry is one activity log record.
type ActivityEntry struct {
	ActionType string    `json:"actionType"`
	Timestamp  time.Time `json:"timestamp"`
}

// Transaction is one transaction record.
type Transaction struct {
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
}

// Connection is one network/relationship record.
type Connection struct {
	Verified   bool    `json:"verified"`
	TrustScore float64 `json:"trustScore"`
}

// Behavior holds behavioral counters.
type Behavior struct {
	ResponseRate       float64 `json:"responseRate"`
	AvgResponseTimeSec float64 `json:"avgResponseTimeSec"`
	ProfileChanges     int     `json:"profileChanges"`
	ReportCount        int     `json:"reportCount"`
	ScamFlags          int     `json:"scamFlags"`
	DisputeCount       int     `json:"disputeCount"`
}

// Input bundles all raw records for one subject.
type Input struct {
	Account      Account         `json:"account"`
	Activity     []ActivityEntry `json:"activity"`
	Transactions []Transaction   `json:"transactions"`
	Connections  []Connection    `json:"connections"`
	Behavior     Behavior        `json:"behavior"`
}

// Extractor produces feature vectors from raw records.
// Sub-extractors are independent and tolerant of empty input; each
// returns a zero-filled default map rather than failing. Extraction
// never mutates its inputs.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates a feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// WithClock overrides the extractor's time source. Used in tests.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// AccountFeatures extracts account-level features.
func (e *Extractor) AccountFeatures(account Account) Vector {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.now()
	}
	ageDays := math.Floor(e.now().Sub(createdAt).Hours() / 24)

	isNew := 0.0
	if ageDays < 7 {
		isNew = 1.0
	}

	return Vector{
		"account_age_days":     ageDays,
		"account_age_weeks":    ageDays / 7,
		"is_new_account":       isNew,
		"profile_completeness": account.ProfileCompleteness,
		"verification_level":   float64(account.VerificationLevel),
		"has_verified_email":   boolFeature(account.EmailVerified),
		"has_verified_phone":   boolFeature(account.PhoneVerified),
	}
}

// ActivityFeatures extracts activity pattern features over the given
// timeframe.
func (e *Extractor) ActivityFeatures(logs []ActivityEntry, timeframeHours int) Vector {
	if len(logs) == 0 {
		return Vector{
			"activity_count_24h": 0,
			"unique_actions":     0,
			"messages_sent":      0,
			"login_count":        0,
			"activity_velocity":  0,
		}
	}

	cutoff := e.now().Add(-time.Duration(timeframeHours) * time.Hour)

	actionTypes := make(map[string]struct{})
	var recent, messages, logins int

	for _, entry := range logs {
		if !entry.Timestamp.After(cutoff) {
			continue
		}
		recent++
		actionTypes[entry.ActionType] = struct{}{}
		switch entry.ActionType {
		case "message_sent":
			messages++
		case "login":
			logins++
		}
	}

	return Vector{
		"activity_count_24h": float64(recent),
		"unique_actions":     float64(len(actionTypes)),
		"messages_sent":      float64(messages),
		"login_count":        float64(logins),
		"activity_velocity":  float64(recent) / math.Max(float64(timeframeHours), 1),
	}
}

// TransactionFeatures extracts transaction-based features.
func (e *Extractor) TransactionFeatures(transactions []Transaction) Vector {
	if len(transactions) == 0 {
		return Vector{
			"total_transactions":   0,
			"successful_rate":      0,
			"avg_amount":           0,
			"max_amount":           0,
			"transaction_velocity": 0,
		}
	}

	var successful int
	var total, maxAmount float64
	minAmount := math.Inf(1)

	for _, tx := range transactions {
		if tx.Status == "completed" {
			successful++
		}
		total += tx.Amount
		maxAmount = math.Max(maxAmount, tx.Amount)
		minAmount = math.Min(minAmount, tx.Amount)
	}

	count := float64(len(transactions))

	return Vector{
		"total_transactions":   count,
		"successful_count":     float64(successful),
		"successful_rate":      float64(successful) / count,
		"avg_amount":           total / count,
		"max_amount":           maxAmount,
		"min_amount":           minAmount,
		"total_amount":         total,
		"transaction_velocity": count / 30, // per month
	}
}

// NetworkFeatures extracts social/network features.
func (e *Extractor) NetworkFeatures(connections []Connection) Vector {
	if len(connections) == 0 {
		return Vector{
			"connection_count":     0,
			"verified_connections": 0,
			"avg_connection_trust": 0,
		}
	}

	var verified int
	var trustSum float64
	minTrust := math.Inf(1)

	for _, conn := range connections {
		if conn.Verified {
			verified++
		}
		trustSum += conn.TrustScore
		minTrust = math.Min(minTrust, conn.TrustScore)
	}

	count := float64(len(connections))

	return Vector{
		"connection_count":     count,
		"verified_connections": float64(verified),
		"verified_ratio":       float64(verified) / count,
		"avg_connection_trust": trustSum / count,
		"min_connection_trust": minTrust,
	}
}

// BehaviorFeatures extracts behavioral anomaly features.
func (e *Extractor) BehaviorFeatures(behavior Behavior) Vector {
	return Vector{
		"response_rate":         behavior.ResponseRate,
		"avg_response_time_min": behavior.AvgResponseTimeSec / 60,
		"profile_changes":       float64(behavior.ProfileChanges),
		"report_count":          float64(behavior.ReportCount),
		"scam_flags":            float64(behavior.ScamFlags),
		"dispute_count":         float64(behavior.DisputeCount),
	}
}

// ExtractAll merges all sub-extractor outputs and derives the
// risk_score_base aggregate feature.
func (e *Extractor) ExtractAll(in Input) Vector {
	features := make(Vector)

	merge(features, e.AccountFeatures(in.Account))
	merge(features, e.ActivityFeatures(in.Activity, 24))
	merge(features, e.TransactionFeatures(in.Transactions))
	merge(features, e.NetworkFeatures(in.Connections))
	merge(features, e.BehaviorFeatures(in.Behavior))

	features["risk_score_base"] = riskBase(features)

	return features
}

// riskBase aggregates a subset of features with fixed additive
// weights, capped at 1.0.
func riskBase(features Vector) float64 {
	risk := 0.0

	if features.Get("is_new_account", 0) > 0 {
		risk += 0.2
	}
	if features.Get("verification_level", 0) == 0 {
		risk += 0.2
	}
	if features.Get("activity_velocity", 0) > 10 {
		risk += 0.15
	}

	risk += features.Get("scam_flags", 0) * 0.1
	risk += features.Get("report_count", 0) * 0.05

	return math.Min(risk, 1.0)
}

func merge(dst, src Vector) {
	for k, v := range src {
		dst[k] = v
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
