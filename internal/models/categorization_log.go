package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CategorizationLog records every rule-driven category change on a
// transaction, with the before/after ids and the match details as JSON.
type CategorizationLog struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID    uuid.UUID `gorm:"type:uuid;index"`
	RuleID           uuid.UUID `gorm:"type:uuid;index"`
	PreviousCategory *uuid.UUID `gorm:"type:uuid"`
	NewCategory      *uuid.UUID `gorm:"type:uuid"`
	Details          datatypes.JSON
	CreatedAt        time.Time
}
