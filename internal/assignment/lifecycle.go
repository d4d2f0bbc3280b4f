package assignment

import (
	"fmt"
	"time"

	"github.com/desklinehq/deskline/internal/models"
	"github.com/desklinehq/deskline/internal/sla"
	"gorm.io/gorm"
)

// Transfer hands an open assignment to a new agent. Exactly one audit entry
// is appended per hand-off. The SLA deadline is untouched: it attaches to the
// work item, not the agent, so reassignment cannot reset the clock.
func Transfer(db *gorm.DB, id, toAgent, reason string) (*models.Assignment, error) {
	if toAgent == "" {
		return nil, fmt.Errorf("assignment: target agent is required")
	}

	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: transfer %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}
		if a.AgentID == toAgent {
			return fmt.Errorf("assignment: %s already owned by %s: %w", id, toAgent, ErrNoOpTransfer)
		}

		record := models.Transfer{
			AssignmentID: a.ID,
			FromAgent:    a.AgentID,
			ToAgent:      toAgent,
			Reason:       reason,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("assignment: record transfer for %s: %w", id, err)
		}

		updates := map[string]interface{}{
			"agent_id": toAgent,
			"status":   models.StatusTransferred,
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: transfer %s: %w", id, err)
		}
		a.AgentID = toAgent
		a.Status = models.StatusTransferred
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Escalate raises an open assignment's attention level. It records who should
// be engaged but never changes ownership; callers wanting both effects chain
// Escalate and Transfer.
func Escalate(db *gorm.DB, id, toAgent string, level int) (*models.Assignment, error) {
	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: escalate %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}
		if level <= a.EscalationLevel {
			return fmt.Errorf("assignment: %s at level %d, requested %d: %w",
				id, a.EscalationLevel, level, ErrInvalidEscalationLevel)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"escalation_level": level,
			"escalated_at":     now,
			"escalated_to":     toAgent,
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: escalate %s: %w", id, err)
		}
		a.EscalationLevel = level
		a.EscalatedAt = &now
		a.EscalatedTo = toAgent
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete closes an open assignment as fulfilled, fixing slaMet against the
// frozen deadline. The record is immutable afterwards.
func Complete(db *gorm.DB, id, reason string, satisfaction *int) (*models.Assignment, error) {
	if satisfaction != nil && (*satisfaction < 0 || *satisfaction > 5) {
		return nil, fmt.Errorf("assignment: score %d: %w", *satisfaction, ErrInvalidScore)
	}

	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: complete %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}

		now := time.Now()
		met := !now.After(a.SLADeadline)
		updates := map[string]interface{}{
			"status":            models.StatusCompleted,
			"completed_at":      now,
			"completion_reason": reason,
			"sla_met":           met,
			"active_key":        nil,
		}
		if satisfaction != nil {
			updates["satisfaction_score"] = *satisfaction
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: complete %s: %w", id, err)
		}
		a.Status = models.StatusCompleted
		a.CompletedAt = &now
		a.CompletionReason = reason
		a.SLAMet = &met
		a.SatisfactionScore = satisfaction
		a.ActiveKey = nil
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel closes an open assignment without a fulfillment outcome; slaMet stays
// unset. The record survives for the audit trail — there is no hard delete.
func Cancel(db *gorm.DB, id, reason string) (*models.Assignment, error) {
	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: cancel %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":            models.StatusCancelled,
			"completed_at":      now,
			"completion_reason": reason,
			"active_key":        nil,
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: cancel %s: %w", id, err)
		}
		a.Status = models.StatusCancelled
		a.CompletedAt = &now
		a.CompletionReason = reason
		a.ActiveKey = nil
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reprioritize changes an open assignment's priority and recomputes the SLA
// deadline from the original assignment time. Deadlines freeze once the
// assignment leaves the open states.
func Reprioritize(db *gorm.DB, id string, pri sla.Priority, policy sla.Policy) (*models.Assignment, error) {
	if !sla.Valid(pri) {
		return nil, fmt.Errorf("assignment: unknown priority %q", pri)
	}
	if policy == nil {
		policy = sla.Default()
	}

	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: reprioritize %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}

		deadline := policy.Deadline(pri, a.AssignedAt)
		updates := map[string]interface{}{
			"priority":     string(pri),
			"sla_deadline": deadline,
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: reprioritize %s: %w", id, err)
		}
		a.Priority = string(pri)
		a.SLADeadline = deadline
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MetricsUpdate carries the reporting fields fed by the messaging subsystem.
// Nil fields are left unchanged.
type MetricsUpdate struct {
	FirstResponseTime   *time.Duration
	AverageResponseTime *time.Duration
	ResolutionTime      *time.Duration
	TotalMessages       *int
	TotalInteractions   *int
}

// UpdateMetrics applies externally reported metrics to an open assignment.
// The message and interaction counters are monotonic: an update that would
// lower either fails and changes nothing.
func UpdateMetrics(db *gorm.DB, id string, m MetricsUpdate) (*models.Assignment, error) {
	var out *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := getForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !isOpen(a.Status) {
			return fmt.Errorf("assignment: update metrics for %s in status %s: %w", id, a.Status, ErrInvalidTransition)
		}

		updates := map[string]interface{}{}
		if m.FirstResponseTime != nil {
			updates["first_response_time"] = *m.FirstResponseTime
			a.FirstResponseTime = *m.FirstResponseTime
		}
		if m.AverageResponseTime != nil {
			updates["average_response_time"] = *m.AverageResponseTime
			a.AverageResponseTime = *m.AverageResponseTime
		}
		if m.ResolutionTime != nil {
			updates["resolution_time"] = *m.ResolutionTime
			a.ResolutionTime = *m.ResolutionTime
		}
		if m.TotalMessages != nil {
			if *m.TotalMessages < a.TotalMessages {
				return fmt.Errorf("assignment: %s messages %d → %d: %w",
					id, a.TotalMessages, *m.TotalMessages, ErrNonMonotonicUpdate)
			}
			updates["total_messages"] = *m.TotalMessages
			a.TotalMessages = *m.TotalMessages
		}
		if m.TotalInteractions != nil {
			if *m.TotalInteractions < a.TotalInteractions {
				return fmt.Errorf("assignment: %s interactions %d → %d: %w",
					id, a.TotalInteractions, *m.TotalInteractions, ErrNonMonotonicUpdate)
			}
			updates["total_interactions"] = *m.TotalInteractions
			a.TotalInteractions = *m.TotalInteractions
		}

		if len(updates) == 0 {
			out = a
			return nil
		}
		if err := tx.Model(&models.Assignment{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("assignment: update metrics for %s: %w", id, err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
