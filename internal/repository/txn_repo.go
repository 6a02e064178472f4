package repository

import (
	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) DB() *gorm.DB {
	return r.db
}

func (r *TransactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// ListActive returns the user's active posted transactions; the dedup
// fingerprint set is seeded from these.
func (r *TransactionRepository) ListActive(userID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.Where("user_id = ? AND is_active = ? AND status = ?",
		userID, true, models.TxnPosted).
		Find(&txns).Error
	return txns, err
}

func (r *TransactionRepository) SaveAll(txns []*models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	return r.db.Save(txns).Error
}

// RuleApplyFilter narrows the candidate set for a bulk rule application.
type RuleApplyFilter struct {
	Month             string
	AccountID         *uuid.UUID
	OnlyUncategorized bool
	IncludeManual     bool
}

func (r *TransactionRepository) queryForApply(userID uuid.UUID, filter RuleApplyFilter) *gorm.DB {
	query := r.db.Model(&models.Transaction{}).
		Where("user_id = ? AND is_active = ? AND status = ?", userID, true, models.TxnPosted)
	if filter.Month != "" {
		query = query.Where("month_ref = ?", filter.Month)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.OnlyUncategorized {
		query = query.Where("category_id IS NULL AND subcategory_id IS NULL")
	}
	return query
}

// FindForRuleApply returns the candidates a bulk apply evaluates. Unless
// IncludeManual is set, manually categorized transactions are excluded.
func (r *TransactionRepository) FindForRuleApply(userID uuid.UUID, filter RuleApplyFilter) ([]*models.Transaction, error) {
	query := r.queryForApply(userID, filter)
	if !filter.IncludeManual {
		query = query.Where("categorization_mode IS NULL OR categorization_mode != ?", models.CategorizedManual)
	}
	var txns []*models.Transaction
	err := query.Order("occurred_at ASC").Find(&txns).Error
	return txns, err
}

// CountManualExcluded counts the manually categorized transactions a
// non-override bulk apply leaves alone.
func (r *TransactionRepository) CountManualExcluded(userID uuid.UUID, filter RuleApplyFilter) (int64, error) {
	var count int64
	err := r.queryForApply(userID, filter).
		Where("categorization_mode = ?", models.CategorizedManual).
		Count(&count).Error
	return count, err
}
