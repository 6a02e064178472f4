package repository

import (
	"errors"
	"fmt"

	"moneta-backend/internal/apperr"
	"moneta-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportRepository struct {
	db *gorm.DB
}

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) DB() *gorm.DB {
	return r.db
}

func (r *ImportRepository) CreateBatch(batch *models.ImportBatch) error {
	return r.db.Create(batch).Error
}

func (r *ImportRepository) SaveBatch(batch *models.ImportBatch) error {
	return r.db.Save(batch).Error
}

func (r *ImportRepository) GetBatch(userID, batchID uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.First(&batch, "id = ? AND user_id = ?", batchID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *ImportRepository) ListBatches(userID uuid.UUID) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	err := r.db.Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&batches).Error
	return batches, err
}

// DeleteBatch removes the rows and the header together.
func (r *ImportRepository) DeleteBatch(batch *models.ImportBatch) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batch.ID).Delete(&models.ImportRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(batch).Error
	})
}

func (r *ImportRepository) CreateRows(rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(rows).Error
}

func (r *ImportRepository) SaveRows(rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Save(rows).Error
}

// RowsForCommit returns the batch rows in file order. With onlyReady set it
// narrows to READY rows up front; the commit loop still skips non-READY rows
// it encounters either way.
func (r *ImportRepository) RowsForCommit(userID, batchID uuid.UUID, onlyReady bool) ([]*models.ImportRow, error) {
	query := r.db.Where("batch_id = ? AND user_id = ?", batchID, userID)
	if onlyReady {
		query = query.Where("status = ?", models.RowReady)
	}
	var rows []*models.ImportRow
	err := query.Order("row_index ASC").Find(&rows).Error
	return rows, err
}

// ListRowsPage returns one page of rows, optionally filtered by status,
// ordered by file position.
func (r *ImportRepository) ListRowsPage(
	userID, batchID uuid.UUID,
	status models.ImportRowStatus,
	page, size int,
) ([]models.ImportRow, int64, error) {
	query := r.db.Model(&models.ImportRow{}).
		Where("batch_id = ? AND user_id = ?", batchID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ImportRow
	err := query.Order("row_index ASC").
		Offset(page * size).
		Limit(size).
		Find(&rows).Error
	return rows, total, err
}

// StatusCounts is the partition of a batch's rows by status.
type StatusCounts struct {
	Total     int
	Error     int
	Duplicate int
	Ready     int
	Committed int
}

// CountRowsByStatus recomputes the partition from the rows themselves.
func (r *ImportRepository) CountRowsByStatus(userID, batchID uuid.UUID) (StatusCounts, error) {
	var counts StatusCounts
	var rows []struct {
		Status models.ImportRowStatus
		Count  int
	}

	err := r.db.Model(&models.ImportRow{}).
		Where("batch_id = ? AND user_id = ?", batchID, userID).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}

	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.RowError:
			counts.Error = row.Count
		case models.RowDuplicate:
			counts.Duplicate = row.Count
		case models.RowReady:
			counts.Ready = row.Count
		case models.RowCommitted:
			counts.Committed = row.Count
		}
	}
	return counts, nil
}
