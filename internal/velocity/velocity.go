// Package velocity provides subject event velocity calculation.
package velocity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// Service calculates event velocity for subjects.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	db    *sql.DB // Direct DB access for custom queries
}

// NewService creates a new velocity service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetEventCount returns the number of events for a subject within a time window.
// This is the VelocityGetter function signature expected by the rule engine.
func (s *Service) GetEventCount(ctx context.Context, tenantID, subjectID string, windowSecs int) (int64, error) {
	if tenantID == "" || subjectID == "" {
		return 0, fmt.Errorf("tenantID and subjectID are required")
	}

	// Query database for actual count (caching would require careful TTL management)
	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)

	if s.db != nil {
		return s.countFromDB(ctx, tenantID, subjectID, since)
	}

	if s.repo != nil {
		return s.countFromRepo(ctx, tenantID, subjectID, since)
	}

	return 0, fmt.Errorf("no data source available")
}

// countFromDB queries the database directly for the event count.
func (s *Service) countFromDB(ctx context.Context, tenantID, subjectID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM subject_events
		WHERE tenant_id = ?
		AND subject_id = ?
		AND timestamp >= ?
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, tenantID, subjectID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// countFromRepo uses the repository to count events across all types.
func (s *Service) countFromRepo(ctx context.Context, tenantID, subjectID string, since time.Time) (int64, error) {
	count, err := s.repo.CountSubjectEvents(ctx, tenantID, subjectID, "", since)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Record stores a subject event for later velocity lookups.
func (s *Service) Record(ctx context.Context, tenantID, subjectID, eventType string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.RecordSubjectEvent(ctx, tenantID, &domain.SubjectEvent{
		TenantID:  tenantID,
		SubjectID: subjectID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	})
}

// GetVelocityGetter returns a VelocityGetter function for the rule engine.
func (s *Service) GetVelocityGetter() func(ctx context.Context, tenantID, subjectID string, windowSecs int) (int64, error) {
	return s.GetEventCount
}
