package assignment

import (
	"errors"
	"fmt"

	"github.com/desklinehq/deskline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetField upserts one custom key-value pair on an assignment. Fields carry
// no invariants and stay writable in every status; lifecycle logic never
// reads them.
func SetField(db *gorm.DB, id, key, value string) error {
	if key == "" {
		return fmt.Errorf("assignment: field key is required")
	}

	var count int64
	if err := db.Model(&models.Assignment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("assignment: check %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("assignment: %s: %w", id, ErrNotFound)
	}

	field := models.AssignmentField{
		AssignmentID: id,
		Key:          key,
		Value:        value,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&field).Error
	if err != nil {
		return fmt.Errorf("assignment: set field %s on %s: %w", key, id, err)
	}
	return nil
}

// Fields returns an assignment's custom fields as a map.
func Fields(db *gorm.DB, id string) (map[string]string, error) {
	var count int64
	if err := db.Model(&models.Assignment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("assignment: check %s: %w", id, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("assignment: %s: %w", id, ErrNotFound)
	}

	var rows []models.AssignmentField
	if err := db.Where("assignment_id = ?", id).Find(&rows).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assignment: fields of %s: %w", id, err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
