package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportRow is one parsed CSV line and its staging state.
//
// Invariants: Hash is set while the row is READY and stays on it once
// COMMITTED (it doubles as the created transaction's dedup key); DUPLICATE
// and ERROR rows carry no hash. CreatedTxnID is non-nil iff Status ==
// COMMITTED.
type ImportRow struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID               uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID                uuid.UUID `gorm:"type:uuid;index;not null"`
	RowIndex              int       `gorm:"not null"`
	RawLine               string
	ParsedDate            *time.Time
	Description           string
	AmountCents           int64
	Direction             TxnDirection
	PaymentType           PaymentType `gorm:"default:PIX"`
	ParsedAccountName     string
	ParsedCardName        string
	ResolvedAccountID     *uuid.UUID `gorm:"type:uuid"`
	ResolvedCardID        *uuid.UUID `gorm:"type:uuid"`
	ResolvedCategoryID    *uuid.UUID `gorm:"type:uuid"`
	ResolvedSubcategoryID *uuid.UUID `gorm:"type:uuid"`
	Hash                  *string
	Status                ImportRowStatus `gorm:"index"`
	ErrorMessage          string
	CreatedTxnID          *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Transition moves the row through the staging state machine; any move the
// machine does not allow is a programming error surfaced loudly.
func (r *ImportRow) Transition(to ImportRowStatus) error {
	if !r.Status.CanTransition(to) {
		return fmt.Errorf("invalid row transition %s -> %s", r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return nil
}
