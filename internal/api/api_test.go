package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/globaltrusthub/trusthub/internal/alerts"
	"github.com/globaltrusthub/trusthub/internal/decay"
	"github.com/globaltrusthub/trusthub/internal/decision"
	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/features"
	"github.com/globaltrusthub/trusthub/internal/fraud"
	"github.com/globaltrusthub/trusthub/internal/patterns"
	"github.com/globaltrusthub/trusthub/internal/rules"
	"github.com/globaltrusthub/trusthub/internal/trust"
)

// createTestServer creates a server with the full engine stack and no
// storage, cache, or bus.
func createTestServer() *Server {
	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	engine, _ := rules.NewEngine(nil, 5)
	engine.LoadRules(rules.DefaultRules())

	profiles := rules.NewProfileEngine()
	profiles.LoadProfiles(rules.DefaultProfiles())

	deps := Dependencies{
		Engine:     engine,
		Profiles:   profiles,
		Calculator: trust.NewCalculator(),
		Decay:      decay.NewEngine(decay.DefaultConfig()),
		Analyzer:   patterns.NewAnalyzer(nil),
		Scorer:     decision.NewConfidenceScorer(),
		Pipeline:   fraud.NewPipeline(engine, profiles),
		Alerts:     alerts.NewRegistry(nil),
		Version:    "test-v1",
	}

	return NewServer(cfg, deps)
}

func postJSON(server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func getPath(server *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestScoreEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("SuccessfulScore", func(t *testing.T) {
		reqBody := domain.ScoreRequest{
			SubjectID: "user-001",
			Verification: domain.VerificationInput{
				Level:             3,
				DocumentsVerified: 3,
				IdentityConfirmed: true,
			},
			Transactions: domain.TransactionInput{
				Successful: 25,
				TotalValue: 12000,
			},
			Reviews: domain.ReviewInput{
				Total:         20,
				AverageRating: 4.7,
				Verified:      18,
			},
			Activity: domain.ActivityInput{
				DaysActive:          400,
				LoginFrequency:      5,
				ProfileCompleteness: 1.0,
				ResponseRate:        0.9,
			},
		}

		rr := postJSON(server, "/score", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp ScoreResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.EvaluationID == "" {
			t.Error("expected evaluationId in response")
		}
		if resp.SubjectID != "user-001" {
			t.Errorf("expected subjectId 'user-001', got '%s'", resp.SubjectID)
		}
		if resp.Score <= 600 {
			t.Errorf("expected strong score for well-established subject, got %.1f", resp.Score)
		}
		if len(resp.Components) != 5 {
			t.Errorf("expected 5 components, got %d", len(resp.Components))
		}
		if resp.Metadata.Version != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp.Metadata.Version)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
	})

	t.Run("MissingSubjectID", func(t *testing.T) {
		rr := postJSON(server, "/score", domain.ScoreRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		rr := postJSON(server, "/score", domain.ScoreRequest{SubjectID: "user-002"})

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})

	t.Run("NoRepositoryLookup", func(t *testing.T) {
		rr := getPath(server, "/scores/some-id")
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503 without repository, got %d", rr.Code)
		}
	})
}

func TestDecayEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("InactivityAndEventDecay", func(t *testing.T) {
		lastActivity := time.Now().Add(-100 * 24 * time.Hour)
		expiry := time.Now().Add(-10 * 24 * time.Hour)

		reqBody := DecayRequest{
			SubjectID:    "user-001",
			CurrentScore: 800,
			LastActivity: &lastActivity,
			Documents: []decay.Document{
				{Type: "cnic", ExpiryDate: &expiry},
			},
			Events: []DecayEvent{
				{Reason: decay.ReasonNegativeReview, Severity: 1.0},
			},
		}

		rr := postJSON(server, "/score/decay", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp DecayResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.NewScore >= resp.PreviousScore {
			t.Errorf("expected score to drop from %.1f, got %.1f", resp.PreviousScore, resp.NewScore)
		}
		if resp.TotalDecay <= 0 {
			t.Error("expected positive total decay")
		}
		if len(resp.Reasons) < 3 {
			t.Errorf("expected 3 decay reasons, got %v", resp.Reasons)
		}
		if len(resp.ExpiredDocs) != 1 {
			t.Errorf("expected 1 expired document, got %d", len(resp.ExpiredDocs))
		}
	})

	t.Run("NegativeScore", func(t *testing.T) {
		rr := postJSON(server, "/score/decay", DecayRequest{CurrentScore: -10})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Recovery", func(t *testing.T) {
		reqBody := RecoveryRequest{
			SubjectID:      "user-001",
			CurrentScore:   400,
			BaseScore:      500,
			PositiveEvents: 5,
			ActiveWeeks:    1,
		}

		rr := postJSON(server, "/score/recovery", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		// Recovery caps at 10% of base per week
		if resp["recovery"].(float64) != 50 {
			t.Errorf("expected recovery 50, got %v", resp["recovery"])
		}
		if resp["newScore"].(float64) != 450 {
			t.Errorf("expected new score 450, got %v", resp["newScore"])
		}
	})

	t.Run("RecoveryRequiresBaseScore", func(t *testing.T) {
		rr := postJSON(server, "/score/recovery", RecoveryRequest{CurrentScore: 400})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Forecast", func(t *testing.T) {
		lastActivity := time.Now().Add(-60 * 24 * time.Hour).Format(time.RFC3339)
		path := fmt.Sprintf("/score/forecast?score=500&lastActivity=%s&weeks=4", lastActivity)

		rr := getPath(server, path)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			CurrentScore float64                `json:"currentScore"`
			Weeks        int                    `json:"weeks"`
			Forecast     []decay.WeekProjection `json:"forecast"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if len(resp.Forecast) != 4 {
			t.Fatalf("expected 4 weeks of forecast, got %d", len(resp.Forecast))
		}
		if resp.Forecast[3].ProjectedScore >= 500 {
			t.Errorf("expected projected score below 500, got %.1f", resp.Forecast[3].ProjectedScore)
		}
	})

	t.Run("ForecastInvalidParams", func(t *testing.T) {
		rr := getPath(server, "/score/forecast?score=abc")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}

		rr = getPath(server, "/score/forecast?score=500&lastActivity=not-a-date")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestMessageEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("AnalyzeScamMessage", func(t *testing.T) {
		reqBody := AnalyzeMessageRequest{
			Text: "URGENT! Send payment via Western Union gift card now to claim your lottery prize. Guaranteed profit, act immediately!",
		}

		rr := postJSON(server, "/messages/analyze", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp patterns.Prediction
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.ScamProbability <= 0.3 {
			t.Errorf("expected high scam probability, got %.2f", resp.ScamProbability)
		}
		if len(resp.Assessment.Details) == 0 {
			t.Error("expected category hits in assessment details")
		}
	})

	t.Run("AnalyzeCleanMessage", func(t *testing.T) {
		rr := postJSON(server, "/messages/analyze", AnalyzeMessageRequest{
			Text: "Thanks for the update, I will review the design document tomorrow.",
		})

		var resp patterns.Prediction
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.IsScam {
			t.Errorf("expected clean verdict, got scam with probability %.2f", resp.ScamProbability)
		}
	})

	t.Run("MissingText", func(t *testing.T) {
		rr := postJSON(server, "/messages/analyze", AnalyzeMessageRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ThresholdScopedToRequest", func(t *testing.T) {
		// Scores 0.45: below the default 0.5, above a caller's 0.1
		borderline := "Send money immediately to get guaranteed visa approval!"

		rr := postJSON(server, "/messages/analyze", AnalyzeMessageRequest{
			Text:      borderline,
			Threshold: 0.1,
		})

		var strict patterns.Prediction
		json.Unmarshal(rr.Body.Bytes(), &strict)
		if !strict.IsScam {
			t.Errorf("expected scam verdict at threshold 0.1, probability %.2f", strict.ScamProbability)
		}

		// A later request without a threshold gets the default back
		rr = postJSON(server, "/messages/analyze", AnalyzeMessageRequest{
			Text: borderline,
		})

		var defaulted patterns.Prediction
		json.Unmarshal(rr.Body.Bytes(), &defaulted)
		if defaulted.IsScam {
			t.Errorf("earlier request's threshold leaked: probability %.2f flagged", defaulted.ScamProbability)
		}
	})

	t.Run("AnalyzeConversation", func(t *testing.T) {
		reqBody := AnalyzeConversationRequest{
			Messages: []patterns.Message{
				{SenderID: "user-a", Content: "Hi, is the laptop still available?"},
				{SenderID: "user-b", Content: "Yes! But you must send advance payment via gift card right now, limited time offer!"},
			},
		}

		rr := postJSON(server, "/conversations/analyze", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp patterns.ConversationAnalysis
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.TotalMessages != 2 {
			t.Errorf("expected 2 total messages, got %d", resp.TotalMessages)
		}
		if resp.FlaggedCount < 1 {
			t.Error("expected at least one flagged message")
		}
		if resp.RiskLevel == patterns.RiskMinimal {
			t.Error("expected elevated risk level")
		}
	})
}

func TestVerificationEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("ApproveCleanDocument", func(t *testing.T) {
		reqBody := VerificationRequest{
			SubjectID: "user-001",
			Documents: []domain.DocumentSignals{
				{
					DocumentType:      "profile_photo",
					OCRConfidence:     1.0,
					FieldsTotal:       5,
					FieldsFilled:      5,
					ForgeryConfidence: 0.0,
					ValidationPassed:  true,
				},
			},
		}

		rr := postJSON(server, "/verification/decide", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp VerificationResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Result.Decision != domain.DecisionApprove {
			t.Errorf("expected approve, got %s", resp.Result.Decision)
		}
		if resp.Result.DocumentsAnalyzed != 1 {
			t.Errorf("expected 1 document analyzed, got %d", resp.Result.DocumentsAnalyzed)
		}
	})

	t.Run("ForgeryRejectsSet", func(t *testing.T) {
		reqBody := VerificationRequest{
			Documents: []domain.DocumentSignals{
				{
					DocumentType:      "profile_photo",
					OCRConfidence:     1.0,
					FieldsTotal:       5,
					FieldsFilled:      5,
					ValidationPassed:  true,
					ForgeryConfidence: 0.0,
				},
				{
					DocumentType:      "cnic",
					OCRConfidence:     0.9,
					FieldsTotal:       5,
					FieldsFilled:      5,
					ForgeryConfidence: 0.95,
					ForgeryDetected:   true,
				},
			},
		}

		rr := postJSON(server, "/verification/decide", reqBody)

		var resp VerificationResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Result.Decision != domain.DecisionReject {
			t.Errorf("expected reject for forged document, got %s", resp.Result.Decision)
		}
	})

	t.Run("EmptyDocuments", func(t *testing.T) {
		rr := postJSON(server, "/verification/decide", VerificationRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestFraudEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("RiskySubjectAlerts", func(t *testing.T) {
		reqBody := fraud.EvaluateRequest{
			SubjectID: "scammer-1",
			Input: features.Input{
				Account: features.Account{
					ID:        "scammer-1",
					CreatedAt: time.Now().Add(-48 * time.Hour),
				},
				Behavior: features.Behavior{
					ReportCount: 3,
					ScamFlags:   2,
				},
			},
			Messages: []string{
				"Guaranteed profit! Send advance payment via gift card now, limited time offer.",
			},
		}

		rr := postJSON(server, "/fraud/evaluate", reqBody)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp FraudResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Status != domain.StatusAlert {
			t.Errorf("expected status ALRT, got %s", resp.Status)
		}
		if resp.Probability <= 0 {
			t.Error("expected positive fraud probability")
		}
		if len(resp.Reasons) == 0 {
			t.Error("expected failure reasons")
		}
	})

	t.Run("EstablishedSubjectPasses", func(t *testing.T) {
		reqBody := fraud.EvaluateRequest{
			SubjectID: "user-legit",
			Input: features.Input{
				Account: features.Account{
					ID:                "user-legit",
					CreatedAt:         time.Now().Add(-400 * 24 * time.Hour),
					VerificationLevel: 3,
					EmailVerified:     true,
					PhoneVerified:     true,
				},
				Behavior: features.Behavior{
					ResponseRate: 0.9,
				},
			},
		}

		rr := postJSON(server, "/fraud/evaluate", reqBody)

		var resp FraudResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Status != domain.StatusNoAlert {
			t.Errorf("expected status NALT, got %s", resp.Status)
		}
	})

	t.Run("MissingSubjectID", func(t *testing.T) {
		rr := postJSON(server, "/fraud/evaluate", fraud.EvaluateRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("ListRules", func(t *testing.T) {
		rr := getPath(server, "/rules")

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Count != 5 {
			t.Errorf("expected 5 default rules, got %d", resp.Count)
		}
	})

	t.Run("GetRule", func(t *testing.T) {
		rr := getPath(server, "/rules/new-account-001")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		rr = getPath(server, "/rules/nonexistent")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("CreateRule", func(t *testing.T) {
		reqBody := CreateRuleRequest{
			ID:         "custom-rule-001",
			Name:       "Custom New Account Rule",
			Expression: "account_age_days < 3.0 ? 1.0 : 0.0",
			Weight:     1.0,
			Enabled:    true,
		}

		rr := postJSON(server, "/rules", reqBody)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("CreateRuleInvalidExpression", func(t *testing.T) {
		reqBody := CreateRuleRequest{
			ID:         "bad-rule-001",
			Name:       "Broken Rule",
			Expression: "account_age_days >>>> 2",
			Enabled:    true,
		}

		rr := postJSON(server, "/rules", reqBody)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ReloadWithoutRepository", func(t *testing.T) {
		rr := postJSON(server, "/rules/reload", nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestProfileEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("ListProfiles", func(t *testing.T) {
		rr := getPath(server, "/profiles")

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Count != 2 {
			t.Errorf("expected 2 default profiles, got %d", resp.Count)
		}
	})

	t.Run("GetProfile", func(t *testing.T) {
		rr := getPath(server, "/profiles/advance-fee-scam")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("CreateProfileUnknownRule", func(t *testing.T) {
		reqBody := CreateProfileRequest{
			ID:   "custom-profile-001",
			Name: "Custom Profile",
			Rules: []domain.ProfileRuleWeight{
				{RuleID: "no-such-rule", Weight: 1.0},
			},
			AlertThreshold: 0.5,
			Enabled:        true,
		}

		rr := postJSON(server, "/profiles", reqBody)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown rule, got %d", rr.Code)
		}
	})

	t.Run("CreateProfileBadThreshold", func(t *testing.T) {
		reqBody := CreateProfileRequest{
			ID:   "custom-profile-002",
			Name: "Zero Threshold Profile",
			Rules: []domain.ProfileRuleWeight{
				{RuleID: "new-account-001", Weight: 1.0},
			},
			AlertThreshold: 0,
			Enabled:        true,
		}

		rr := postJSON(server, "/profiles", reqBody)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for zero threshold, got %d", rr.Code)
		}
	})
}

func TestAlertEndpoints(t *testing.T) {
	server := createTestServer()

	// Raise an alert by analyzing a scam message with a known sender
	rr := postJSON(server, "/messages/analyze", AnalyzeMessageRequest{
		Text:     "URGENT! Send payment via Western Union gift card now to claim your lottery prize. Guaranteed!",
		SenderID: "scammer-9",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d %s", rr.Code, rr.Body.String())
	}

	t.Run("ListPending", func(t *testing.T) {
		rr := getPath(server, "/alerts")

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count  int             `json:"count"`
			Alerts []*domain.Alert `json:"alerts"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Count < 1 {
			t.Fatal("expected at least one pending alert")
		}
		if resp.Alerts[0].SubjectID != "scammer-9" {
			t.Errorf("expected alert for scammer-9, got %s", resp.Alerts[0].SubjectID)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		rr := getPath(server, "/alerts/stats")

		var stats domain.AlertStatistics
		json.Unmarshal(rr.Body.Bytes(), &stats)

		if stats.Total < 1 {
			t.Error("expected at least one alert in stats")
		}
		if stats.Pending < 1 {
			t.Error("expected at least one pending alert in stats")
		}
	})

	t.Run("SubjectAlerts", func(t *testing.T) {
		rr := getPath(server, "/subjects/scammer-9/alerts")

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Count < 1 {
			t.Error("expected alerts for subject scammer-9")
		}
	})

	t.Run("ResolveAlert", func(t *testing.T) {
		listRR := getPath(server, "/alerts")
		var listResp struct {
			Alerts []*domain.Alert `json:"alerts"`
		}
		json.Unmarshal(listRR.Body.Bytes(), &listResp)
		if len(listResp.Alerts) == 0 {
			t.Fatal("no alert to resolve")
		}

		alertID := listResp.Alerts[0].ID
		rr := postJSON(server, "/alerts/"+alertID+"/resolve", ResolveAlertRequest{
			ResolvedBy:  "moderator-1",
			Notes:       "confirmed scam, account suspended",
			ActionTaken: "block",
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resolved domain.Alert
		json.Unmarshal(rr.Body.Bytes(), &resolved)

		if !resolved.Resolved {
			t.Error("expected alert marked resolved")
		}
		if resolved.ResolvedBy != "moderator-1" {
			t.Errorf("expected resolvedBy 'moderator-1', got '%s'", resolved.ResolvedBy)
		}
	})

	t.Run("ResolveUnknownAlert", func(t *testing.T) {
		rr := postJSON(server, "/alerts/no-such-alert/resolve", ResolveAlertRequest{
			ResolvedBy: "moderator-1",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
