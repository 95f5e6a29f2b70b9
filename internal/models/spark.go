package models

import "gorm.io/gorm"

// Spark category constants.
const (
	SparkCategoryDate  = "date"
	SparkCategoryConvo = "convo"
	SparkCategoryWYR   = "wyr"
	SparkCategoryGame  = "game"
)

// SparkCategories lists every valid spark category.
var SparkCategories = []string{
	SparkCategoryDate, SparkCategoryConvo, SparkCategoryWYR, SparkCategoryGame,
}

// ValidSparkCategory reports whether c is a known spark category.
func ValidSparkCategory(c string) bool {
	for _, known := range SparkCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Spark is an activity card for live moments together, independent of the
// daily prompt cycle. The catalog is immutable and seeded externally.
type Spark struct {
	gorm.Model
	Text     string `gorm:"type:text;not null"`
	Category string `gorm:"size:20;not null;index"`

	// Second option for "would you rather" cards, empty otherwise.
	OptionB string `gorm:"type:text;not null;default:''"`

	// Mood filter, reuses the prompt vibe values.
	Vibe string `gorm:"size:20;not null;default:'wildcard';index"`

	Subtitle string `gorm:"size:200;not null;default:''"`
}

// SparkPreference records a user's archive flag for a spark. Rows are created
// lazily on the first archive/unarchive action.
type SparkPreference struct {
	gorm.Model
	UserID   uint `gorm:"not null;uniqueIndex:idx_spark_prefs_user_spark,where:deleted_at IS NULL"`
	SparkID  uint `gorm:"not null;uniqueIndex:idx_spark_prefs_user_spark,where:deleted_at IS NULL"`
	Archived bool `gorm:"not null;default:false"`
}
