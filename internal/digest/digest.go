// Package digest builds scheduled workload and SLA reports and posts them to
// chat channels. Reports are read-only snapshots; posting them never touches
// assignment state.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desklinehq/deskline/internal/models"
	"github.com/desklinehq/deskline/internal/workload"
	"gorm.io/gorm"
)

// maxOverdueLines caps how many overdue assignments a digest lists in full.
const maxOverdueLines = 10

// Poster delivers a finished report to one chat platform.
type Poster interface {
	Post(ctx context.Context, r *Report) error
}

// OverdueRow is one overdue assignment in a report.
type OverdueRow struct {
	ID         string
	EntityType string
	EntityID   string
	AgentID    string
	Priority   string
	OverdueBy  time.Duration
}

// Report is a point-in-time workload and SLA snapshot.
type Report struct {
	GeneratedAt     time.Time
	Team            []workload.TeamRow
	Overdue         []OverdueRow
	BreachesLast24h int
	OpenEscalations int
}

// Build assembles a report from current assignment state.
func Build(db *gorm.DB, maxCapacity int) (*Report, error) {
	now := time.Now()
	r := &Report{GeneratedAt: now}

	team, err := workload.Team(db, maxCapacity)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	r.Team = team

	open := []string{models.StatusActive, models.StatusTransferred}

	var overdue []models.Assignment
	err = db.Where("status IN ? AND sla_deadline < ?", open, now).
		Order("sla_deadline ASC").
		Find(&overdue).Error
	if err != nil {
		return nil, fmt.Errorf("digest: overdue: %w", err)
	}
	for _, a := range overdue {
		r.Overdue = append(r.Overdue, OverdueRow{
			ID:         a.ID,
			EntityType: a.EntityType,
			EntityID:   a.EntityID,
			AgentID:    a.AgentID,
			Priority:   a.Priority,
			OverdueBy:  now.Sub(a.SLADeadline),
		})
	}

	var breaches int64
	err = db.Model(&models.Assignment{}).
		Where("status = ? AND sla_met = ? AND completed_at >= ?",
			models.StatusCompleted, false, now.Add(-24*time.Hour)).
		Count(&breaches).Error
	if err != nil {
		return nil, fmt.Errorf("digest: breaches: %w", err)
	}
	r.BreachesLast24h = int(breaches)

	var escalated int64
	err = db.Model(&models.Assignment{}).
		Where("status IN ? AND escalation_level > 0", open).
		Count(&escalated).Error
	if err != nil {
		return nil, fmt.Errorf("digest: escalations: %w", err)
	}
	r.OpenEscalations = int(escalated)

	return r, nil
}

// Headline returns the one-line summary for the report.
func (r *Report) Headline() string {
	return fmt.Sprintf("Deskline digest: %d overdue, %d SLA breaches in 24h, %d open escalations",
		len(r.Overdue), r.BreachesLast24h, r.OpenEscalations)
}

// Body renders the report as plain text.
func (r *Report) Body() string {
	var b strings.Builder

	if len(r.Team) > 0 {
		b.WriteString("Agent load:\n")
		for _, row := range r.Team {
			fmt.Fprintf(&b, "  %s: %d active (%.0f%%), %d overdue\n",
				row.AgentID, row.ActiveAssignments, row.CapacityUtilization, row.Overdue)
		}
	}

	if len(r.Overdue) > 0 {
		b.WriteString("Overdue:\n")
		for i, row := range r.Overdue {
			if i == maxOverdueLines {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.Overdue)-maxOverdueLines)
				break
			}
			fmt.Fprintf(&b, "  %s %s/%s agent=%s priority=%s overdue by %s\n",
				row.ID, row.EntityType, row.EntityID, row.AgentID, row.Priority,
				formatOverdueBy(row.OverdueBy))
		}
	}

	if b.Len() == 0 {
		return "All clear: no open assignments past deadline."
	}
	return strings.TrimRight(b.String(), "\n")
}

// Severity classifies the report for display color hints.
func (r *Report) Severity() string {
	if len(r.Overdue) > 0 || r.BreachesLast24h > 0 {
		return "warning"
	}
	return "info"
}

// formatOverdueBy formats a lateness duration as a short human string.
func formatOverdueBy(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	return fmt.Sprintf("%dh %dm", h, int(d.Minutes())%60)
}
