package repository

import (
	"errors"
	"fmt"
	"strings"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

func (r *CategoryRepository) List(userID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(userID, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.First(&category, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByName does a case-insensitive name lookup. A miss is reported as
// not-found; import staging treats that as "leave the row uncategorized",
// not as a row error.
func (r *CategoryRepository) FindByName(userID uuid.UUID, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.First(&category,
		"user_id = ? AND LOWER(name) = ? AND is_active = ?",
		userID, strings.ToLower(strings.TrimSpace(name)), true,
	).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}
