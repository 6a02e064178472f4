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

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Expose DB if needed
func (r *AccountRepository) DB() *gorm.DB {
	return r.db
}

func (r *AccountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

func (r *AccountRepository) List(userID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) GetByID(userID, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, "id = ? AND user_id = ? AND is_active = ?", id, userID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ResolveRef maps a free-text reference to an account: a parseable UUID is
// looked up by id, anything else is a case-insensitive name lookup, both
// scoped to the user and restricted to active accounts.
func (r *AccountRepository) ResolveRef(userID uuid.UUID, ref string) (*models.Account, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return r.GetByID(userID, id)
	}

	var account models.Account
	err := r.db.First(&account,
		"user_id = ? AND LOWER(name) = ? AND is_active = ?",
		userID, strings.ToLower(ref), true,
	).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %q: %w", ref, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
