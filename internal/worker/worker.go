// Package worker provides async message processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/fraud"
	"github.com/globaltrusthub/trusthub/internal/trust"
)

// Worker processes scoring and fraud requests asynchronously from the EventBus.
type Worker struct {
	bus        domain.EventBus
	repo       domain.Repository
	cache      domain.Cache
	calculator *trust.Calculator
	pipeline   *fraud.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, calculator *trust.Calculator, pipeline *fraud.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        bus,
		repo:       repo,
		cache:      cache,
		calculator: calculator,
		pipeline:   pipeline,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	scoreSub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicScoreRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processScoreRequest(ctx, msg.TenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, scoreSub)

	fraudSub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicFraudEvaluate, func(ctx context.Context, msg *domain.Message) error {
		return w.processFraudRequest(ctx, msg.TenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, fraudSub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	scoreSub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicScoreRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processScoreRequest(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, scoreSub)

	fraudSub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicFraudEvaluate, func(ctx context.Context, msg *domain.Message) error {
		return w.processFraudRequest(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, fraudSub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topics", []string{domain.TopicScoreRequested, domain.TopicFraudEvaluate},
	)

	return nil
}

// ScoreMessage is the message payload for async score computation.
type ScoreMessage struct {
	TenantID string              `json:"tenantId"`
	TraceID  string              `json:"traceId"`
	Request  domain.ScoreRequest `json:"request"`
}

// processScoreRequest computes and persists a trust score.
func (w *Worker) processScoreRequest(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var scoreMsg ScoreMessage
	if err := json.Unmarshal(msg.Payload, &scoreMsg); err != nil {
		slog.Error("failed to parse score message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if scoreMsg.TenantID != "" {
		tenantID = scoreMsg.TenantID
	}
	traceID := scoreMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	total, level, components, breakdown, tips := w.calculator.Score(&scoreMsg.Request)

	eval := &domain.ScoreEvaluation{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		SubjectID:  scoreMsg.Request.SubjectID,
		Score:      total,
		Level:      level,
		Timestamp:  time.Now().UTC(),
		Breakdown:  breakdown,
		Components: components,
		Tips:       tips,
		Metadata: domain.EvaluationMetadata{
			TraceID:       traceID,
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: "trusthub-1.0",
		},
	}

	if w.repo != nil {
		if err := w.repo.SaveScoreEvaluation(ctx, tenantID, eval); err != nil {
			slog.Error("failed to save score evaluation",
				"subject_id", eval.SubjectID,
				"error", err,
			)
		}
	}

	if w.cache != nil {
		_ = w.cache.SetScore(ctx, tenantID, eval.SubjectID, &domain.ScoreCache{
			SubjectID: eval.SubjectID,
			Score:     eval.Score,
			Level:     string(eval.Level),
			Timestamp: eval.Timestamp.Format(time.RFC3339),
		}, time.Hour)
	}

	resultPayload, _ := json.Marshal(eval)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicScoreUpdated, resultPayload); err != nil {
		slog.Error("failed to publish score update",
			"subject_id", eval.SubjectID,
			"error", err,
		)
	}

	slog.Info("score request processed",
		"subject_id", eval.SubjectID,
		"tenant_id", tenantID,
		"score", eval.Score,
		"level", eval.Level,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// processFraudRequest evaluates a subject through the fraud pipeline.
func (w *Worker) processFraudRequest(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var req fraud.EvaluateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse fraud message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if req.TenantID != "" {
		tenantID = req.TenantID
	}
	if req.TraceID == "" {
		req.TraceID = msg.ID
	}
	if req.VelocityWindow == 0 {
		req.VelocityWindow = 3600 // Default 1 hour
	}

	evaluation, err := w.pipeline.Evaluate(ctx, &req)
	if err != nil {
		slog.Error("fraud evaluation failed",
			"subject_id", req.SubjectID,
			"error", err,
		)
		return err
	}

	if w.repo != nil {
		if err := w.repo.SaveFraudEvaluation(ctx, tenantID, evaluation); err != nil {
			slog.Error("failed to save fraud evaluation",
				"subject_id", req.SubjectID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(evaluation)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicDecision, resultPayload); err != nil {
		slog.Error("failed to publish decision",
			"subject_id", req.SubjectID,
			"error", err,
		)
	}

	if fraud.ShouldAlert(evaluation) {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, resultPayload); err != nil {
			slog.Error("failed to publish alert",
				"subject_id", req.SubjectID,
				"error", err,
			)
		}
	}

	slog.Info("fraud request processed",
		"subject_id", req.SubjectID,
		"tenant_id", tenantID,
		"status", evaluation.Status,
		"score", evaluation.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
