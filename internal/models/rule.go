package models

import (
	"time"

	"github.com/google/uuid"
)

// Rule is a user-owned categorization directive. Lower priority numbers are
// evaluated first. Regex patterns are validated when the rule is saved, not
// when it is matched.
type Rule struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	Name          string
	Priority      int           `gorm:"index"`
	MatchType     RuleMatchType `gorm:"not null"`
	Pattern       string        `gorm:"not null"`
	CategoryID    *uuid.UUID    `gorm:"type:uuid"`
	SubcategoryID *uuid.UUID    `gorm:"type:uuid"`
	AccountID     *uuid.UUID    `gorm:"type:uuid"`
	IsActive      bool          `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
