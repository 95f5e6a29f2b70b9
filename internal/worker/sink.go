package worker

import (
	"context"
	"log/slog"

	"github.com/thevault-app/thevault/internal/journal"
	"github.com/thevault-app/thevault/internal/models"
	"github.com/thevault-app/thevault/internal/streams"
)

// Sink fans journal events out to the async side: a notification task for the
// partner and a scoring request for the sentiment pipeline. Failures are
// logged, never surfaced to the submitting request.
type Sink struct {
	publisher *streams.Publisher
	logger    *slog.Logger
}

var _ journal.EventSink = (*Sink)(nil)

func NewSink(publisher *streams.Publisher, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{publisher: publisher, logger: logger}
}

func (s *Sink) EntrySubmitted(ctx context.Context, couple *models.Couple, entry *models.Entry, partnerID *uint, unlocked bool) {
	if partnerID != nil {
		if err := EnqueuePartnerAnswered(entry.ID, unlocked); err != nil {
			s.logger.Error("Failed to enqueue partner notification",
				"entry_id", entry.ID,
				"error", err.Error(),
			)
		}
	}

	if s.publisher != nil {
		_, err := s.publisher.PublishSentimentRequest(ctx, streams.SentimentRequest{
			EntryID: entry.ID,
			Text:    entry.TextContent,
		})
		if err != nil {
			s.logger.Error("Failed to publish sentiment request",
				"entry_id", entry.ID,
				"error", err.Error(),
			)
		}
	}
}
