package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/desklinehq/deskline/internal/assignment"
	"github.com/desklinehq/deskline/internal/digest"
	"github.com/desklinehq/deskline/internal/models"
	"github.com/desklinehq/deskline/internal/sla"
	"github.com/desklinehq/deskline/internal/workload"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	db := opts.DB

	router.GET("/healthz", handleHealth(db))

	router.POST("/api/assignments", handleCreate(db, opts.Policy))
	router.GET("/api/assignments", handleList(db))
	router.GET("/api/assignments/:id", handleGet(db))
	router.POST("/api/assignments/:id/transfer", handleTransfer(db))
	router.POST("/api/assignments/:id/escalate", handleEscalate(db))
	router.POST("/api/assignments/:id/complete", handleComplete(db))
	router.POST("/api/assignments/:id/cancel", handleCancel(db))
	router.POST("/api/assignments/:id/priority", handleReprioritize(db, opts.Policy))
	router.POST("/api/assignments/:id/metrics", handleMetrics(db))
	router.GET("/api/assignments/:id/fields", handleGetFields(db))
	router.PUT("/api/assignments/:id/fields", handleSetField(db))

	router.GET("/api/overdue", handleOverdue(db))
	router.GET("/api/workload", handleTeamWorkload(db, opts.MaxCapacity))
	router.GET("/api/agents/:id/workload", handleAgentWorkload(db, opts.MaxCapacity))
	router.GET("/api/digest", handleDigest(db, opts.MaxCapacity))
}

// assignmentResponse is the wire form of an assignment.
type assignmentResponse struct {
	ID                string             `json:"id"`
	EntityType        string             `json:"entity_type"`
	EntityID          string             `json:"entity_id"`
	AgentID           string             `json:"agent_id"`
	Status            string             `json:"status"`
	Type              string             `json:"assignment_type"`
	Priority          string             `json:"priority"`
	AssignedBy        string             `json:"assigned_by,omitempty"`
	AssignedAt        time.Time          `json:"assigned_at"`
	EscalationLevel   int                `json:"escalation_level"`
	EscalatedAt       *time.Time         `json:"escalated_at,omitempty"`
	EscalatedTo       string             `json:"escalated_to,omitempty"`
	SLADeadline       time.Time          `json:"sla_deadline"`
	SLAMet            *bool              `json:"sla_met,omitempty"`
	Overdue           bool               `json:"overdue"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	CompletionReason  string             `json:"completion_reason,omitempty"`
	SatisfactionScore *int               `json:"satisfaction_score,omitempty"`
	RequiredSkills    []string           `json:"required_skills,omitempty"`
	AgentSkills       []string           `json:"agent_skills,omitempty"`
	SkillMatchScore   float64            `json:"skill_match_score"`
	FirstResponseMs   int64              `json:"first_response_ms,omitempty"`
	AvgResponseMs     int64              `json:"average_response_ms,omitempty"`
	ResolutionMs      int64              `json:"resolution_ms,omitempty"`
	TotalMessages     int                `json:"total_messages"`
	TotalInteractions int                `json:"total_interactions"`
	Transfers         []transferResponse `json:"transfers,omitempty"`
}

// transferResponse is the wire form of one audit entry.
type transferResponse struct {
	FromAgent string    `json:"from_agent"`
	ToAgent   string    `json:"to_agent"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func toResponse(a *models.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:                a.ID,
		EntityType:        a.EntityType,
		EntityID:          a.EntityID,
		AgentID:           a.AgentID,
		Status:            a.Status,
		Type:              a.Type,
		Priority:          a.Priority,
		AssignedBy:        a.AssignedBy,
		AssignedAt:        a.AssignedAt,
		EscalationLevel:   a.EscalationLevel,
		EscalatedAt:       a.EscalatedAt,
		EscalatedTo:       a.EscalatedTo,
		SLADeadline:       a.SLADeadline,
		SLAMet:            a.SLAMet,
		Overdue:           assignment.IsOverdue(a),
		CompletedAt:       a.CompletedAt,
		CompletionReason:  a.CompletionReason,
		SatisfactionScore: a.SatisfactionScore,
		RequiredSkills:    assignment.DecodeSkills(a.RequiredSkills),
		AgentSkills:       assignment.DecodeSkills(a.AgentSkills),
		SkillMatchScore:   a.SkillMatchScore,
		FirstResponseMs:   a.FirstResponseTime.Milliseconds(),
		AvgResponseMs:     a.AverageResponseTime.Milliseconds(),
		ResolutionMs:      a.ResolutionTime.Milliseconds(),
		TotalMessages:     a.TotalMessages,
		TotalInteractions: a.TotalInteractions,
	}
	for _, tr := range a.Transfers {
		resp.Transfers = append(resp.Transfers, transferResponse{
			FromAgent: tr.FromAgent,
			ToAgent:   tr.ToAgent,
			Reason:    tr.Reason,
			At:        tr.CreatedAt,
		})
	}
	return resp
}

// writeError maps assignment errors to HTTP statuses: business-rule
// violations are 4xx, anything else is a store failure and reports 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, assignment.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assignment.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, assignment.ErrNoOpTransfer),
		errors.Is(err, assignment.ErrInvalidTransition),
		errors.Is(err, assignment.ErrInvalidEscalationLevel),
		errors.Is(err, assignment.ErrInvalidScore),
		errors.Is(err, assignment.ErrNonMonotonicUpdate):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleCreate(db *gorm.DB, policy sla.Policy) gin.HandlerFunc {
	type request struct {
		EntityType     string   `json:"entity_type" binding:"required"`
		EntityID       string   `json:"entity_id" binding:"required"`
		AgentID        string   `json:"agent_id" binding:"required"`
		Priority       string   `json:"priority"`
		Type           string   `json:"assignment_type"`
		RequiredSkills []string `json:"required_skills"`
		AgentSkills    []string `json:"agent_skills"`
		AssignedBy     string   `json:"assigned_by"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Create(db, assignment.CreateOpts{
			EntityType:     req.EntityType,
			EntityID:       req.EntityID,
			AgentID:        req.AgentID,
			Priority:       sla.Priority(req.Priority),
			Type:           req.Type,
			RequiredSkills: req.RequiredSkills,
			AgentSkills:    req.AgentSkills,
			AssignedBy:     req.AssignedBy,
			Policy:         policy,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toResponse(a))
	}
}

func handleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := assignment.List(db, assignment.ListFilters{
			AgentID:    c.Query("agent"),
			Status:     c.Query("status"),
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Priority:   c.Query("priority"),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]assignmentResponse, len(list))
		for i := range list {
			out[i] = toResponse(&list[i])
		}
		c.JSON(http.StatusOK, gin.H{"assignments": out})
	}
}

func handleGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := assignment.Get(db, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleTransfer(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		ToAgent string `json:"to_agent" binding:"required"`
		Reason  string `json:"reason"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Transfer(db, c.Param("id"), req.ToAgent, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleEscalate(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		ToAgent string `json:"to_agent"`
		Level   int    `json:"level" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Escalate(db, c.Param("id"), req.ToAgent, req.Level)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleComplete(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		Reason            string `json:"reason"`
		SatisfactionScore *int   `json:"satisfaction_score"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Complete(db, c.Param("id"), req.Reason, req.SatisfactionScore)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleCancel(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		Reason string `json:"reason"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Cancel(db, c.Param("id"), req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleReprioritize(db *gorm.DB, policy sla.Policy) gin.HandlerFunc {
	type request struct {
		Priority string `json:"priority" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := assignment.Reprioritize(db, c.Param("id"), sla.Priority(req.Priority), policy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleMetrics(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		FirstResponseMs   *int64 `json:"first_response_ms"`
		AvgResponseMs     *int64 `json:"average_response_ms"`
		ResolutionMs      *int64 `json:"resolution_ms"`
		TotalMessages     *int   `json:"total_messages"`
		TotalInteractions *int   `json:"total_interactions"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		update := assignment.MetricsUpdate{
			TotalMessages:     req.TotalMessages,
			TotalInteractions: req.TotalInteractions,
		}
		if req.FirstResponseMs != nil {
			d := time.Duration(*req.FirstResponseMs) * time.Millisecond
			update.FirstResponseTime = &d
		}
		if req.AvgResponseMs != nil {
			d := time.Duration(*req.AvgResponseMs) * time.Millisecond
			update.AverageResponseTime = &d
		}
		if req.ResolutionMs != nil {
			d := time.Duration(*req.ResolutionMs) * time.Millisecond
			update.ResolutionTime = &d
		}
		a, err := assignment.UpdateMetrics(db, c.Param("id"), update)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(a))
	}
}

func handleGetFields(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields, err := assignment.Fields(db, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"fields": fields})
	}
}

func handleSetField(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := assignment.SetField(db, c.Param("id"), req.Key, req.Value); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleOverdue(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := assignment.ListOverdue(db)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]assignmentResponse, len(list))
		for i := range list {
			out[i] = toResponse(&list[i])
		}
		c.JSON(http.StatusOK, gin.H{"assignments": out})
	}
}

func handleTeamWorkload(db *gorm.DB, maxCapacity int) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := workload.Team(db, maxCapacity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": rows})
	}
}

func handleAgentWorkload(db *gorm.DB, maxCapacity int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var window workload.Window
		if raw := c.Query("from"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from: expected RFC3339 timestamp"})
				return
			}
			window.From = t
		}
		if raw := c.Query("to"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to: expected RFC3339 timestamp"})
				return
			}
			window.To = t
		}
		summary, err := workload.ForAgent(db, c.Param("id"), window, maxCapacity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func handleDigest(db *gorm.DB, maxCapacity int) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := digest.Build(db, maxCapacity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
