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

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(card *models.Card) error {
	return r.db.Create(card).Error
}

func (r *CardRepository) List(userID uuid.UUID) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&cards).Error
	return cards, err
}

func (r *CardRepository) GetByID(userID, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	err := r.db.First(&card, "id = ? AND user_id = ? AND is_active = ?", id, userID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("card %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// ResolveRef maps a free-text reference (UUID or case-insensitive name) to
// an active card owned by the user.
func (r *CardRepository) ResolveRef(userID uuid.UUID, ref string) (*models.Card, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return r.GetByID(userID, id)
	}

	var card models.Card
	err := r.db.First(&card,
		"user_id = ? AND LOWER(name) = ? AND is_active = ?",
		userID, strings.ToLower(ref), true,
	).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("card %q: %w", ref, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}
