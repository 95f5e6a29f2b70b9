package models

import (
	"strings"

	"gorm.io/gorm"
)

// Entry is one member's answer to a prompt within a vault. At most one entry
// may exist per (user, prompt, couple); the database enforces it and the
// journal service translates the violation into a duplicate-submission error.
type Entry struct {
	gorm.Model
	UserID   uint   `gorm:"not null;index;uniqueIndex:idx_entries_user_prompt_couple,where:deleted_at IS NULL"`
	User     User   `gorm:"foreignKey:UserID"`
	PromptID uint   `gorm:"not null;index;uniqueIndex:idx_entries_user_prompt_couple,where:deleted_at IS NULL"`
	Prompt   Prompt `gorm:"foreignKey:PromptID"`

	// Nullable only for pre-vault legacy rows. Couples are never deleted;
	// the migration declares this reference ON DELETE RESTRICT.
	CoupleID *uint   `gorm:"index;uniqueIndex:idx_entries_user_prompt_couple,where:deleted_at IS NULL"`
	Couple   *Couple `gorm:"foreignKey:CoupleID"`

	TextContent string `gorm:"type:text;not null"`

	// Opaque reference into the external blob store.
	PhotoRef string `gorm:"size:300;not null;default:''"`

	// Recomputed from TextContent on every save.
	WordCount int `gorm:"not null;default:0;index"`

	// Written by the external sentiment pipeline, range [-1, 1].
	SentimentScore *float64

	LocationTag string `gorm:"size:200;not null;default:''"`
}

// BeforeSave recalculates the word count so aggregate stats can always trust
// the stored value.
func (e *Entry) BeforeSave(tx *gorm.DB) error {
	e.WordCount = len(strings.Fields(e.TextContent))
	return nil
}
