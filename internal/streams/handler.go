package streams

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// HandleSentimentScore returns a handler that writes pipeline scores onto
// their entries. An unknown entry id is dropped rather than retried; the
// entry may have been deleted since the text was queued.
func HandleSentimentScore(db *gorm.DB) func(SentimentScore) error {
	return func(score SentimentScore) error {
		var entry models.Entry
		if err := db.First(&entry, score.EntryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Warn("Score for unknown entry dropped", "entry_id", score.EntryID)
				return nil
			}
			return fmt.Errorf("failed to find entry: %w", err)
		}

		if err := db.Model(&entry).UpdateColumn("sentiment_score", score.Score).Error; err != nil {
			return fmt.Errorf("failed to update entry score: %w", err)
		}

		slog.Info("Sentiment score recorded",
			"entry_id", score.EntryID,
			"score", score.Score,
		)
		return nil
	}
}
