package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WrappedSnapshot caches a generated year-in-review payload per vault and
// year so past years are served without recomputation.
type WrappedSnapshot struct {
	gorm.Model
	CoupleID    uint           `gorm:"not null;uniqueIndex:idx_wrapped_couple_year,where:deleted_at IS NULL"`
	Year        int            `gorm:"not null;uniqueIndex:idx_wrapped_couple_year,where:deleted_at IS NULL"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	GeneratedAt time.Time      `gorm:"not null"`
}
