package models

import (
	"time"

	"gorm.io/gorm"
)

// Prompt category constants ("vibes"). Sparks reuse the same values.
const (
	VibeWholesome    = "wholesome"
	VibeLore         = "lore"
	VibeChaos        = "chaos"
	VibeSpicy        = "spicy"
	VibeGrind        = "grind"
	VibePlot         = "plot"
	VibeIntellectual = "intellectual"
	VibeWildcard     = "wildcard"
)

// Vibes lists every valid prompt/spark vibe.
var Vibes = []string{
	VibeWholesome, VibeLore, VibeChaos, VibeSpicy,
	VibeGrind, VibePlot, VibeIntellectual, VibeWildcard,
}

// ValidVibe reports whether v is a known vibe value.
func ValidVibe(v string) bool {
	for _, known := range Vibes {
		if v == known {
			return true
		}
	}
	return false
}

// Prompt is a daily journal question. ActiveDate is globally unique; only its
// month and day are matched at lookup time so the catalog cycles annually.
type Prompt struct {
	gorm.Model
	Text       string    `gorm:"size:500;not null"`
	Category   string    `gorm:"size:20;not null;default:'wildcard';index"`
	ActiveDate time.Time `gorm:"not null;uniqueIndex:idx_prompts_active_date_not_deleted,where:deleted_at IS NULL"`

	// Derived from ActiveDate for indexed month/day cycling lookups.
	ActiveMonth int `gorm:"not null;index:idx_prompts_month_day"`
	ActiveDay   int `gorm:"not null;index:idx_prompts_month_day"`
}

// BeforeSave keeps the derived month/day columns in sync with ActiveDate.
func (p *Prompt) BeforeSave(tx *gorm.DB) error {
	p.ActiveMonth = int(p.ActiveDate.Month())
	p.ActiveDay = p.ActiveDate.Day()
	return nil
}
