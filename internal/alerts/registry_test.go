package alerts

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testRegistry() *Registry {
	return NewRegistry(slog.Default()).WithClock(func() time.Time { return testNow })
}

func TestRegistry_Create_Severity(t *testing.T) {
	ctx := context.Background()

	t.Run("Severity derived from score", func(t *testing.T) {
		tests := []struct {
			score float64
			want  domain.AlertSeverity
		}{
			{0.9, domain.SeverityCritical},
			{0.8, domain.SeverityCritical},
			{0.7, domain.SeverityHigh},
			{0.5, domain.SeverityMedium},
			{0.1, domain.SeverityLow},
		}

		for _, tt := range tests {
			r := testRegistry()
			alert := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", tt.score, nil, "")
			if alert.Severity != tt.want {
				t.Errorf("score %v: severity = %s, want %s", tt.score, alert.Severity, tt.want)
			}
		}
	})

	t.Run("History escalates severity", func(t *testing.T) {
		r := testRegistry()

		// First two low-score alerts stay low
		a1 := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.1, nil, "")
		a2 := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.1, nil, "")
		if a1.Severity != domain.SeverityLow || a2.Severity != domain.SeverityLow {
			t.Errorf("Expected low severities, got %s/%s", a1.Severity, a2.Severity)
		}

		// Third alert: 2 priors escalate to high
		a3 := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.1, nil, "")
		if a3.Severity != domain.SeverityHigh {
			t.Errorf("2 priors: severity = %s, want high", a3.Severity)
		}

		// Fourth alert: 3 priors escalate to critical
		a4 := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.1, nil, "")
		if a4.Severity != domain.SeverityCritical {
			t.Errorf("3 priors: severity = %s, want critical", a4.Severity)
		}
	})

	t.Run("Details merged with history", func(t *testing.T) {
		r := testRegistry()
		alert := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.5,
			map[string]interface{}{"preview": "send money"}, "target-1")

		if alert.Details["scam_score"] != 0.5 {
			t.Errorf("scam_score = %v, want 0.5", alert.Details["scam_score"])
		}
		if alert.Details["previous_alerts"] != 0 {
			t.Errorf("previous_alerts = %v, want 0", alert.Details["previous_alerts"])
		}
		if alert.Details["preview"] != "send money" {
			t.Errorf("preview = %v", alert.Details["preview"])
		}
		if alert.TargetID != "target-1" {
			t.Errorf("TargetID = %s, want target-1", alert.TargetID)
		}
	})
}

type captureSink struct {
	mu     sync.Mutex
	alerts []*domain.Alert
}

func (s *captureSink) OnAlert(_ context.Context, _ string, alert *domain.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

type stubAlertRepo struct {
	domain.Repository
	saved []*domain.Alert
}

func (s *stubAlertRepo) SaveAlert(_ context.Context, _ string, alert *domain.Alert) error {
	s.saved = append(s.saved, alert)
	return nil
}

type stubAlertBus struct {
	domain.EventBus
	published []string
}

func (s *stubAlertBus) Publish(_ context.Context, _ string, topic string, _ []byte) error {
	s.published = append(s.published, topic)
	return nil
}

func TestRegistry_Sinks(t *testing.T) {
	ctx := context.Background()

	t.Run("Every severity notifies sinks", func(t *testing.T) {
		r := testRegistry()
		sink := &captureSink{}
		r.AddSink(sink)

		r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.2, nil, "")
		r.Create(ctx, "t1", domain.AlertScamMessage, "user-2", 0.5, nil, "")
		r.Create(ctx, "t1", domain.AlertScamMessage, "user-3", 0.9, nil, "")

		if len(sink.alerts) != 3 {
			t.Errorf("Expected 3 sink notifications, got %d", len(sink.alerts))
		}
	})

	t.Run("Medium alert reaches repository sink", func(t *testing.T) {
		repo := &stubAlertRepo{}
		r := testRegistry()
		r.AddSink(&RepositorySink{Repo: repo, Logger: slog.Default()})

		r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.5, nil, "")

		if len(repo.saved) != 1 {
			t.Fatalf("Expected 1 persisted alert, got %d", len(repo.saved))
		}
		if repo.saved[0].Severity != domain.SeverityMedium {
			t.Errorf("Severity = %s, want medium", repo.saved[0].Severity)
		}
	})

	t.Run("Bus sink publishes only high and critical", func(t *testing.T) {
		bus := &stubAlertBus{}
		r := testRegistry()
		r.AddSink(&BusSink{Bus: bus, Logger: slog.Default()})

		r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.2, nil, "")
		r.Create(ctx, "t1", domain.AlertScamMessage, "user-2", 0.5, nil, "")
		if len(bus.published) != 0 {
			t.Errorf("Low/medium should not publish, got %d", len(bus.published))
		}

		r.Create(ctx, "t1", domain.AlertScamMessage, "user-3", 0.7, nil, "")
		r.Create(ctx, "t1", domain.AlertScamMessage, "user-4", 0.9, nil, "")
		if len(bus.published) != 2 {
			t.Errorf("High/critical should publish, got %d", len(bus.published))
		}
		for _, topic := range bus.published {
			if topic != domain.TopicAlert {
				t.Errorf("Published on %s, want %s", topic, domain.TopicAlert)
			}
		}
	})
}

func TestRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()

	alert := r.Create(ctx, "t1", domain.AlertScamMessage, "user-1", 0.5, nil, "")

	resolved, ok := r.Resolve(alert.ID, "admin-1", "confirmed scam", "account_suspended")
	if !ok {
		t.Fatal("Expected resolve to succeed")
	}
	if !resolved.Resolved || resolved.ResolvedBy != "admin-1" {
		t.Errorf("Unexpected resolved alert: %+v", resolved)
	}
	if resolved.ResolvedAt == nil {
		t.Error("Expected ResolvedAt to be set")
	}
	if resolved.Details["action_taken"] != "account_suspended" {
		t.Errorf("action_taken = %v", resolved.Details["action_taken"])
	}

	if _, ok := r.Resolve("missing-id", "admin-1", "", ""); ok {
		t.Error("Expected resolve of unknown alert to fail")
	}
}

func TestRegistry_Pending(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()

	low := r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.1, nil, "")
	crit := r.Create(ctx, "t1", domain.AlertFakeDocument, "u2", 0.9, nil, "")
	med := r.Create(ctx, "t1", domain.AlertSuspiciousPattern, "u3", 0.5, nil, "")
	r.Resolve(low.ID, "admin", "", "")

	t.Run("Sorted by severity, resolved excluded", func(t *testing.T) {
		pending := r.Pending("", 50)
		if len(pending) != 2 {
			t.Fatalf("Expected 2 pending, got %d", len(pending))
		}
		if pending[0].ID != crit.ID || pending[1].ID != med.ID {
			t.Errorf("Unexpected ordering: %s, %s", pending[0].Severity, pending[1].Severity)
		}
	})

	t.Run("Severity filter", func(t *testing.T) {
		pending := r.Pending(domain.SeverityCritical, 50)
		if len(pending) != 1 || pending[0].ID != crit.ID {
			t.Errorf("Unexpected filtered result: %v", pending)
		}
	})

	t.Run("Limit applied", func(t *testing.T) {
		pending := r.Pending("", 1)
		if len(pending) != 1 {
			t.Errorf("Expected 1 result with limit, got %d", len(pending))
		}
	})
}

func TestRegistry_ForSubject(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()

	a1 := r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.5, nil, "")
	r.Create(ctx, "t1", domain.AlertScamMessage, "u2", 0.5, nil, "")
	r.Resolve(a1.ID, "admin", "", "")

	if got := r.ForSubject("u1", false); len(got) != 0 {
		t.Errorf("Expected no unresolved alerts for u1, got %d", len(got))
	}
	if got := r.ForSubject("u1", true); len(got) != 1 {
		t.Errorf("Expected 1 alert including resolved, got %d", len(got))
	}
}

func TestRegistry_Statistics(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()

	a1 := r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.9, nil, "")
	r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.9, nil, "")
	r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.9, nil, "")
	r.Create(ctx, "t1", domain.AlertFakeDocument, "u2", 0.5, nil, "")
	r.Resolve(a1.ID, "admin", "", "")

	stats := r.Statistics()
	if stats.Total != 4 || stats.Resolved != 1 || stats.Pending != 3 {
		t.Errorf("Counts wrong: %+v", stats)
	}
	if stats.BySeverity["critical"] != 3 || stats.BySeverity["medium"] != 1 {
		t.Errorf("BySeverity wrong: %v", stats.BySeverity)
	}
	if stats.ByType["scam_message"] != 3 || stats.ByType["fake_document"] != 1 {
		t.Errorf("ByType wrong: %v", stats.ByType)
	}
	if stats.RepeatOffenders != 1 {
		t.Errorf("RepeatOffenders = %d, want 1", stats.RepeatOffenders)
	}
}

func TestRegistry_ShouldAutoBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("Two criticals block", func(t *testing.T) {
		r := testRegistry()
		r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.9, nil, "")
		if r.ShouldAutoBlock("u1") {
			t.Error("One critical should not block")
		}
		r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.9, nil, "")
		if !r.ShouldAutoBlock("u1") {
			t.Error("Two criticals should block")
		}
	})

	t.Run("Three recent highs block", func(t *testing.T) {
		r := testRegistry()
		r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.7, nil, "")
		r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.7, nil, "")
		if r.ShouldAutoBlock("u1") {
			t.Error("Two highs should not block")
		}
		r.Create(ctx, "t1", domain.AlertScamMessage, "u1", 0.7, nil, "")
		if !r.ShouldAutoBlock("u1") {
			t.Error("Three recent highs should block")
		}
	})

	t.Run("Clean subject not blocked", func(t *testing.T) {
		r := testRegistry()
		if r.ShouldAutoBlock("unknown") {
			t.Error("Unknown subject should not block")
		}
	})
}
