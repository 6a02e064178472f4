package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is the seam toward the budget evaluator. The unique index lets two
// concurrent commits both attempt the same alert; the second insert is a
// no-op conflict, not a failure.
type Alert struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_alert_once"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_alert_once"`
	MonthRef   string    `gorm:"not null;uniqueIndex:idx_alert_once"`
	Kind       string    `gorm:"not null;uniqueIndex:idx_alert_once"`
	Message    string
	CreatedAt  time.Time
}
