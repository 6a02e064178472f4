package models

import (
	"time"

	"github.com/google/uuid"
)

// Account, Card and Category are the lookup targets the import pipeline
// resolves free-text references against. They are owned elsewhere; only the
// fields resolution needs live here.

type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"index"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time
}

type Card struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"index"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time
}

// Category rows double as subcategories when ParentID is set.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"index"`
	ParentID  *uuid.UUID `gorm:"type:uuid"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time
}
