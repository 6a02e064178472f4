package repository

import (
	"errors"
	"fmt"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Save(rule *models.Rule) error {
	return r.db.Save(rule).Error
}

// ListActive returns the user's active rules in evaluation order: ascending
// priority, creation time as tie-break.
func (r *RuleRepository) ListActive(userID uuid.UUID) ([]models.Rule, error) {
	var rules []models.Rule
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error
	return rules, err
}

func (r *RuleRepository) GetByID(userID, id uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	err := r.db.First(&rule, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("rule %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
