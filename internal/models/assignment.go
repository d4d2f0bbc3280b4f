package models

import "time"

// Assignment statuses. Active and transferred are the open states; completed
// and cancelled are terminal.
const (
	StatusActive      = "active"
	StatusTransferred = "transferred"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// Assignment types record provenance and never change after creation.
const (
	TypeManual     = "manual"
	TypeAutomatic  = "automatic"
	TypeEscalation = "escalation"
)

// Assignment binds one work item (entity) to one responsible agent.
type Assignment struct {
	ID         string `gorm:"primaryKey;size:36"`
	EntityType string `gorm:"size:32;not null;index:idx_entity"`
	EntityID   string `gorm:"size:64;not null;index:idx_entity"`

	// ActiveKey is "entityType/entityID" while the assignment is open and
	// NULL once terminal. The unique index on it enforces one open
	// assignment per entity; MySQL and SQLite both allow duplicate NULLs.
	ActiveKey *string `gorm:"size:128;uniqueIndex"`

	AgentID    string `gorm:"size:64;not null;index"`
	Status     string `gorm:"size:16;default:active;index"`
	Type       string `gorm:"size:16;default:manual"`
	Priority   string `gorm:"size:16;default:medium"`
	AssignedBy string `gorm:"size:64"`
	AssignedAt time.Time

	EscalationLevel int `gorm:"default:0"`
	EscalatedAt     *time.Time
	EscalatedTo     string `gorm:"size:64"`

	SLADeadline time.Time
	SLAMet      *bool

	CompletedAt       *time.Time
	CompletionReason  string `gorm:"size:255"`
	SatisfactionScore *int

	RequiredSkills  string `gorm:"type:json"`
	AgentSkills     string `gorm:"type:json"`
	SkillMatchScore float64

	// Metrics fed by the messaging subsystem; stored here, never computed.
	FirstResponseTime   time.Duration
	AverageResponseTime time.Duration
	ResolutionTime      time.Duration
	TotalMessages       int
	TotalInteractions   int

	CreatedAt time.Time
	UpdatedAt time.Time

	Transfers []Transfer `gorm:"foreignKey:AssignmentID"`
}

// Transfer is one append-only audit entry for an ownership hand-off.
type Transfer struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	AssignmentID string `gorm:"size:36;index;not null"`
	FromAgent    string `gorm:"size:64;not null"`
	ToAgent      string `gorm:"size:64;not null"`
	Reason       string `gorm:"size:255"`
	CreatedAt    time.Time
}

// AssignmentField is open key-value data attached to an assignment. The
// lifecycle engine never reads it.
type AssignmentField struct {
	AssignmentID string `gorm:"primaryKey;size:36"`
	Key          string `gorm:"primaryKey;size:64"`
	Value        string `gorm:"type:text"`
	UpdatedAt    time.Time
}
