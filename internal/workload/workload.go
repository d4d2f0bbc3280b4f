// Package workload derives agent capacity and performance figures from
// assignment records. It only reads; lifecycle state is never mutated here.
package workload

import (
	"fmt"
	"sort"
	"time"

	"github.com/desklinehq/deskline/internal/models"
	"gorm.io/gorm"
)

// DefaultMaxCapacity is the fallback concurrent-assignment cap when a
// deployment configures none.
const DefaultMaxCapacity = 20

// Utilization returns capacity utilization as a percentage, clamped to
// [0, 100]. An agent with maxCapacity active assignments is at 100; extra
// assignments never push it past that.
func Utilization(active, maxCapacity int) float64 {
	if maxCapacity < 1 {
		maxCapacity = DefaultMaxCapacity
	}
	if active <= 0 {
		return 0
	}
	pct := float64(active) / float64(maxCapacity) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Window bounds a reporting period. Zero values mean unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// AgentSummary holds one agent's current load and windowed performance.
type AgentSummary struct {
	AgentID             string
	ActiveAssignments   int
	CapacityUtilization float64
	Overdue             int
	Completed           int
	Breaches            int // completions that missed their deadline
	AvgFirstResponse    time.Duration
	AvgResolution       time.Duration
	AvgSatisfaction     float64
}

// ForAgent aggregates an agent's workload: current active count and
// utilization, open overdue count, and averages over completions inside the
// window.
func ForAgent(db *gorm.DB, agentID string, w Window, maxCapacity int) (*AgentSummary, error) {
	if agentID == "" {
		return nil, fmt.Errorf("workload: agent ID is required")
	}

	s := &AgentSummary{AgentID: agentID}

	var active int64
	err := db.Model(&models.Assignment{}).
		Where("agent_id = ? AND status = ?", agentID, models.StatusActive).
		Count(&active).Error
	if err != nil {
		return nil, fmt.Errorf("workload: count active for %s: %w", agentID, err)
	}
	s.ActiveAssignments = int(active)
	s.CapacityUtilization = Utilization(s.ActiveAssignments, maxCapacity)

	var overdue int64
	err = db.Model(&models.Assignment{}).
		Where("agent_id = ? AND status IN ? AND sla_deadline < ?",
			agentID, []string{models.StatusActive, models.StatusTransferred}, time.Now()).
		Count(&overdue).Error
	if err != nil {
		return nil, fmt.Errorf("workload: count overdue for %s: %w", agentID, err)
	}
	s.Overdue = int(overdue)

	q := db.Where("agent_id = ? AND status = ?", agentID, models.StatusCompleted)
	if !w.From.IsZero() {
		q = q.Where("completed_at >= ?", w.From)
	}
	if !w.To.IsZero() {
		q = q.Where("completed_at <= ?", w.To)
	}
	var done []models.Assignment
	if err := q.Find(&done).Error; err != nil {
		return nil, fmt.Errorf("workload: completed for %s: %w", agentID, err)
	}

	s.Completed = len(done)
	var frSum, resSum time.Duration
	var frN, resN, satN int
	var satSum float64
	for _, a := range done {
		if a.SLAMet != nil && !*a.SLAMet {
			s.Breaches++
		}
		if a.FirstResponseTime > 0 {
			frSum += a.FirstResponseTime
			frN++
		}
		if a.ResolutionTime > 0 {
			resSum += a.ResolutionTime
			resN++
		}
		if a.SatisfactionScore != nil {
			satSum += float64(*a.SatisfactionScore)
			satN++
		}
	}
	if frN > 0 {
		s.AvgFirstResponse = frSum / time.Duration(frN)
	}
	if resN > 0 {
		s.AvgResolution = resSum / time.Duration(resN)
	}
	if satN > 0 {
		s.AvgSatisfaction = satSum / float64(satN)
	}

	return s, nil
}

// TeamRow holds one agent's load for the team overview.
type TeamRow struct {
	AgentID             string
	ActiveAssignments   int
	CapacityUtilization float64
	Overdue             int
}

// Team returns per-agent load across every agent holding open assignments,
// most loaded first.
func Team(db *gorm.DB, maxCapacity int) ([]TeamRow, error) {
	type row struct {
		AgentID string
		Count   int
	}

	var activeRows []row
	err := db.Model(&models.Assignment{}).
		Select("agent_id, count(*) as count").
		Where("status = ?", models.StatusActive).
		Group("agent_id").
		Find(&activeRows).Error
	if err != nil {
		return nil, fmt.Errorf("workload: team active counts: %w", err)
	}

	var overdueRows []row
	err = db.Model(&models.Assignment{}).
		Select("agent_id, count(*) as count").
		Where("status IN ? AND sla_deadline < ?",
			[]string{models.StatusActive, models.StatusTransferred}, time.Now()).
		Group("agent_id").
		Find(&overdueRows).Error
	if err != nil {
		return nil, fmt.Errorf("workload: team overdue counts: %w", err)
	}

	byAgent := make(map[string]*TeamRow, len(activeRows))
	for _, r := range activeRows {
		byAgent[r.AgentID] = &TeamRow{
			AgentID:             r.AgentID,
			ActiveAssignments:   r.Count,
			CapacityUtilization: Utilization(r.Count, maxCapacity),
		}
	}
	for _, r := range overdueRows {
		tr, ok := byAgent[r.AgentID]
		if !ok {
			tr = &TeamRow{AgentID: r.AgentID}
			byAgent[r.AgentID] = tr
		}
		tr.Overdue = r.Count
	}

	out := make([]TeamRow, 0, len(byAgent))
	for _, tr := range byAgent {
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveAssignments != out[j].ActiveAssignments {
			return out[i].ActiveAssignments > out[j].ActiveAssignments
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out, nil
}
