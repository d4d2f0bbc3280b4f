package assignment

import (
	"time"

	"github.com/desklinehq/deskline/internal/models"
)

// IsOverdue reports whether an open assignment has passed its SLA deadline.
// Terminal assignments are never overdue; their outcome is fixed in SLAMet.
func IsOverdue(a *models.Assignment) bool {
	return IsOverdueAt(a, time.Now())
}

// IsOverdueAt is IsOverdue evaluated at an explicit instant.
func IsOverdueAt(a *models.Assignment, now time.Time) bool {
	return isOpen(a.Status) && now.After(a.SLADeadline)
}

// Duration returns how long the assignment has been (or was) held.
func Duration(a *models.Assignment) time.Duration {
	return DurationAt(a, time.Now())
}

// DurationAt is Duration evaluated at an explicit instant.
func DurationAt(a *models.Assignment, now time.Time) time.Duration {
	end := now
	if a.CompletedAt != nil {
		end = *a.CompletedAt
	}
	return end.Sub(a.AssignedAt)
}
