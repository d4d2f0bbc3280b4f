package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desklinehq/deskline/internal/models"
	"github.com/desklinehq/deskline/internal/sla"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Assignment{},
		&models.Transfer{},
		&models.AssignmentField{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// testRouter builds the API router against an in-memory database.
func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testDB(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, StartOpts{
		DB:          db,
		MaxCapacity: 10,
		Policy:      sla.Default(),
	})
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeAssignment(t *testing.T, w *httptest.ResponseRecorder) assignmentResponse {
	t.Helper()
	var resp assignmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

func createViaAPI(t *testing.T, router *gin.Engine, entityID, agentID string) assignmentResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{
		"entity_type": "conversation",
		"entity_id":   entityID,
		"agent_id":    agentID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", w.Code, w.Body.String())
	}
	return decodeAssignment(t, w)
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestCreateAssignment(t *testing.T) {
	router, _ := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{
		"entity_type":     "conversation",
		"entity_id":       "conv-1",
		"agent_id":        "agent-1",
		"priority":        "urgent",
		"required_skills": []string{"billing"},
		"agent_skills":    []string{"billing"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	resp := decodeAssignment(t, w)
	if resp.ID == "" {
		t.Error("expected generated ID")
	}
	if resp.Status != models.StatusActive {
		t.Errorf("status = %q, want active", resp.Status)
	}
	if resp.Priority != "urgent" {
		t.Errorf("priority = %q, want urgent", resp.Priority)
	}
	if resp.SkillMatchScore != 1.0 {
		t.Errorf("skill_match_score = %v, want 1.0", resp.SkillMatchScore)
	}
}

func TestCreateAssignment_MissingFields(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"entity_type": "conversation"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateAssignment_DuplicateConflict(t *testing.T) {
	router, _ := testRouter(t)
	createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{
		"entity_type": "conversation",
		"entity_id":   "conv-1",
		"agent_id":    "agent-2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body: %s)", w.Code, w.Body.String())
	}
}

func TestGetAssignment(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodGet, "/api/assignments/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeAssignment(t, w)
	if resp.ID != created.ID {
		t.Errorf("id = %q, want %q", resp.ID, created.ID)
	}
}

func TestGetAssignment_NotFound(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/assignments/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListAssignments_Filtered(t *testing.T) {
	router, _ := testRouter(t)
	createViaAPI(t, router, "conv-1", "agent-1")
	createViaAPI(t, router, "conv-2", "agent-2")

	w := doJSON(t, router, http.MethodGet, "/api/assignments?agent=agent-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Assignments []assignmentResponse `json:"assignments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Assignments) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Assignments))
	}
	if resp.Assignments[0].AgentID != "agent-1" {
		t.Errorf("agent = %q, want agent-1", resp.Assignments[0].AgentID)
	}
}

func TestTransferEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/transfer", gin.H{
		"to_agent": "agent-2",
		"reason":   "handoff",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.AgentID != "agent-2" {
		t.Errorf("agent = %q, want agent-2", resp.AgentID)
	}
	if resp.Status != models.StatusTransferred {
		t.Errorf("status = %q, want transferred", resp.Status)
	}
}

func TestTransferEndpoint_NoOp(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/transfer", gin.H{
		"to_agent": "agent-1",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body: %s)", w.Code, w.Body.String())
	}
}

func TestEscalateEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/escalate", gin.H{
		"level":    2,
		"to_agent": "sup-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.EscalationLevel != 2 {
		t.Errorf("escalation_level = %d, want 2", resp.EscalationLevel)
	}

	// Same level again is rejected.
	w = doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/escalate", gin.H{
		"level": 2,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("repeat status = %d, want 422", w.Code)
	}
}

func TestCompleteEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/complete", gin.H{
		"reason":             "resolved",
		"satisfaction_score": 4,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", resp.Status)
	}
	if resp.SLAMet == nil || !*resp.SLAMet {
		t.Errorf("sla_met = %v, want true", resp.SLAMet)
	}
	if resp.SatisfactionScore == nil || *resp.SatisfactionScore != 4 {
		t.Errorf("satisfaction_score = %v, want 4", resp.SatisfactionScore)
	}
}

func TestCompleteEndpoint_InvalidScore(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/complete", gin.H{
		"satisfaction_score": 9,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/cancel", gin.H{
		"reason": "spam",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled", resp.Status)
	}
	if resp.SLAMet != nil {
		t.Errorf("sla_met = %v, want unset on cancellation", *resp.SLAMet)
	}
}

func TestPriorityEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/priority", gin.H{
		"priority": "urgent",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.Priority != "urgent" {
		t.Errorf("priority = %q, want urgent", resp.Priority)
	}
	if !resp.SLADeadline.Before(created.SLADeadline) {
		t.Errorf("deadline should tighten: %v → %v", created.SLADeadline, resp.SLADeadline)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/metrics", gin.H{
		"first_response_ms": 120000,
		"total_messages":    7,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decodeAssignment(t, w)
	if resp.FirstResponseMs != 120000 {
		t.Errorf("first_response_ms = %d, want 120000", resp.FirstResponseMs)
	}
	if resp.TotalMessages != 7 {
		t.Errorf("total_messages = %d, want 7", resp.TotalMessages)
	}

	// Lowering the counter is rejected.
	w = doJSON(t, router, http.MethodPost, "/api/assignments/"+created.ID+"/metrics", gin.H{
		"total_messages": 3,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestFieldsEndpoints(t *testing.T) {
	router, _ := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodPut, "/api/assignments/"+created.ID+"/fields", gin.H{
		"key":   "channel",
		"value": "email",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set field status = %d, body: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/assignments/"+created.ID+"/fields", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get fields status = %d", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Fields["channel"] != "email" {
		t.Errorf("fields[channel] = %q, want email", resp.Fields["channel"])
	}
}

func TestOverdueEndpoint(t *testing.T) {
	router, db := testRouter(t)
	created := createViaAPI(t, router, "conv-1", "agent-1")

	err := db.Model(&models.Assignment{}).Where("id = ?", created.ID).
		Update("sla_deadline", time.Now().Add(-time.Hour)).Error
	if err != nil {
		t.Fatalf("backdate deadline: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/overdue", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Assignments []assignmentResponse `json:"assignments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Assignments) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Assignments))
	}
	if !resp.Assignments[0].Overdue {
		t.Error("overdue flag not set")
	}
}

func TestWorkloadEndpoints(t *testing.T) {
	router, _ := testRouter(t)
	createViaAPI(t, router, "conv-1", "agent-1")
	createViaAPI(t, router, "conv-2", "agent-1")

	w := doJSON(t, router, http.MethodGet, "/api/workload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("team status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "agent-1") {
		t.Errorf("team body missing agent-1: %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/agents/agent-1/workload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("agent status = %d", w.Code)
	}
	var summary struct {
		ActiveAssignments   int     `json:"ActiveAssignments"`
		CapacityUtilization float64 `json:"CapacityUtilization"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.ActiveAssignments != 2 {
		t.Errorf("active = %d, want 2", summary.ActiveAssignments)
	}
	if summary.CapacityUtilization != 20 {
		t.Errorf("utilization = %v, want 20", summary.CapacityUtilization)
	}
}

func TestAgentWorkload_BadWindow(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/agents/agent-1/workload?from=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDigestEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	createViaAPI(t, router, "conv-1", "agent-1")

	w := doJSON(t, router, http.MethodGet, "/api/digest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "GeneratedAt") {
		t.Errorf("digest body missing GeneratedAt: %s", w.Body.String())
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}
