package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatch is one CSV upload. The five row counters always mirror the
// current partition of its rows by status; they are recomputed after every
// row mutation, never incremented in place.
type ImportBatch struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null"`
	Filename      string
	UploadedAt    time.Time
	Status        ImportBatchStatus `gorm:"index"`
	TotalRows     int
	ErrorRows     int
	DuplicateRows int
	ReadyRows     int
	CommittedRows int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
