// Package assignment implements the assignment lifecycle state machine.
//
// All mutations go through this package and run as transactional
// read-modify-write units; Assignment rows are never updated directly.
package assignment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desklinehq/deskline/internal/models"
	"github.com/desklinehq/deskline/internal/skills"
	"github.com/desklinehq/deskline/internal/sla"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openStatuses are the statuses in which an assignment still represents live
// work. Transferred is not terminal: it marks that a hand-off occurred.
var openStatuses = []string{models.StatusActive, models.StatusTransferred}

// CreateOpts holds parameters for creating a new assignment.
type CreateOpts struct {
	EntityType     string
	EntityID       string
	AgentID        string
	Priority       sla.Priority
	Type           string // manual, automatic, escalation
	RequiredSkills []string
	AgentSkills    []string
	AssignedBy     string
	Policy         sla.Policy // nil → sla.Default()
}

// ListFilters holds optional filters for listing assignments.
type ListFilters struct {
	AgentID    string
	Status     string
	EntityType string
	EntityID   string
	Priority   string
}

// Create opens a new assignment. At most one open assignment may exist per
// (entityType, entityID); the unique index on active_key enforces this
// atomically, so concurrent creates for one entity yield exactly one success.
func Create(db *gorm.DB, opts CreateOpts) (*models.Assignment, error) {
	if opts.EntityType == "" {
		return nil, fmt.Errorf("assignment: entity type is required")
	}
	if opts.EntityID == "" {
		return nil, fmt.Errorf("assignment: entity ID is required")
	}
	if opts.AgentID == "" {
		return nil, fmt.Errorf("assignment: agent ID is required")
	}
	if opts.Priority == "" {
		opts.Priority = sla.Medium
	}
	if !sla.Valid(opts.Priority) {
		return nil, fmt.Errorf("assignment: unknown priority %q", opts.Priority)
	}
	switch opts.Type {
	case "":
		opts.Type = models.TypeManual
	case models.TypeManual, models.TypeAutomatic, models.TypeEscalation:
	default:
		return nil, fmt.Errorf("assignment: unknown assignment type %q", opts.Type)
	}

	policy := opts.Policy
	if policy == nil {
		policy = sla.Default()
	}

	required, err := encodeSkills(opts.RequiredSkills)
	if err != nil {
		return nil, fmt.Errorf("assignment: encode required skills: %w", err)
	}
	held, err := encodeSkills(opts.AgentSkills)
	if err != nil {
		return nil, fmt.Errorf("assignment: encode agent skills: %w", err)
	}

	now := time.Now()
	key := activeKey(opts.EntityType, opts.EntityID)
	a := models.Assignment{
		ID:              uuid.NewString(),
		EntityType:      opts.EntityType,
		EntityID:        opts.EntityID,
		ActiveKey:       &key,
		AgentID:         opts.AgentID,
		Status:          models.StatusActive,
		Type:            opts.Type,
		Priority:        string(opts.Priority),
		AssignedBy:      opts.AssignedBy,
		AssignedAt:      now,
		SLADeadline:     policy.Deadline(opts.Priority, now),
		RequiredSkills:  required,
		AgentSkills:     held,
		SkillMatchScore: skills.Match(opts.RequiredSkills, opts.AgentSkills),
	}

	if err := db.Create(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("assignment: %s/%s: %w", opts.EntityType, opts.EntityID, ErrDuplicate)
		}
		return nil, fmt.Errorf("assignment: create: %w", err)
	}
	return &a, nil
}

// Get retrieves an assignment by ID with its transfer history, oldest first.
func Get(db *gorm.DB, id string) (*models.Assignment, error) {
	var a models.Assignment
	err := db.Preload("Transfers", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assignment: %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("assignment: get %s: %w", id, err)
	}
	return &a, nil
}

// List returns assignments matching the given filters, newest first.
func List(db *gorm.DB, filters ListFilters) ([]models.Assignment, error) {
	q := db.Model(&models.Assignment{})

	if filters.AgentID != "" {
		q = q.Where("agent_id = ?", filters.AgentID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.EntityType != "" {
		q = q.Where("entity_type = ?", filters.EntityType)
	}
	if filters.EntityID != "" {
		q = q.Where("entity_id = ?", filters.EntityID)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}

	var out []models.Assignment
	if err := q.Order("assigned_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("assignment: list: %w", err)
	}
	return out, nil
}

// ListOverdue returns open assignments whose SLA deadline has passed.
func ListOverdue(db *gorm.DB) ([]models.Assignment, error) {
	var out []models.Assignment
	err := db.Where("status IN ? AND sla_deadline < ?", openStatuses, time.Now()).
		Order("sla_deadline ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("assignment: list overdue: %w", err)
	}
	return out, nil
}

// activeKey builds the uniqueness key held while an assignment is open.
func activeKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

// getForUpdate loads an assignment inside a transaction, row-locked where the
// dialect supports it.
//
// Note: SQLite has no FOR UPDATE; its single-writer model serializes the
// transaction anyway.
func getForUpdate(tx *gorm.DB, id string) (*models.Assignment, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var a models.Assignment
	if err := q.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assignment: %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("assignment: get %s: %w", id, err)
	}
	return &a, nil
}

// isOpen reports whether the status still represents live work.
func isOpen(status string) bool {
	return status == models.StatusActive || status == models.StatusTransferred
}

// encodeSkills marshals a skill list to its JSON column form. Nil stays empty.
func encodeSkills(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeSkills unmarshals a JSON skill column back to a list.
func DecodeSkills(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}
