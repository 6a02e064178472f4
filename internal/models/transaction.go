package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a posted ledger entry. DedupHash carries the import
// fingerprint; the unique index on (user_id, dedup_hash) is what turns a
// commit race between two concurrent callers into a late duplicate instead
// of a double insert.
type Transaction struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID             uuid.UUID  `gorm:"type:uuid;index;not null;uniqueIndex:idx_txn_user_dedup"`
	AccountID          *uuid.UUID `gorm:"type:uuid;index"`
	CardID             *uuid.UUID `gorm:"type:uuid;index"`
	PaymentType        PaymentType
	AmountCents        int64
	Direction          TxnDirection
	Description        string
	OccurredAt         time.Time
	MonthRef           string `gorm:"index"`
	Status             TxnStatus
	TxnType            TxnType
	CategoryID         *uuid.UUID `gorm:"type:uuid"`
	SubcategoryID      *uuid.UUID `gorm:"type:uuid"`
	RuleID             *uuid.UUID `gorm:"type:uuid"`
	CategorizationMode CategorizationMode
	ImportBatchID      *uuid.UUID `gorm:"type:uuid;index"`
	ImportRowID        *uuid.UUID `gorm:"type:uuid"`
	DedupHash          *string    `gorm:"uniqueIndex:idx_txn_user_dedup"`
	IsActive           bool       `gorm:"default:true"`
	CreatedAt          time.Time
}
