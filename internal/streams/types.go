// Package streams connects the journal to the offline sentiment pipeline over
// Redis Streams: entry text goes out on one stream, scores come back on
// another.
package streams

// Stream name constants
const (
	StreamSentimentRequests = "sentiment:requests"
	StreamSentimentScores   = "sentiment:scores"
)

// Consumer group constants
const (
	GroupSentimentWorkers = "sentiment-workers" // scoring side
	GroupJournalWorkers   = "journal-workers"   // our side
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// SentimentRequest asks the pipeline to score one entry's text.
type SentimentRequest struct {
	EntryID uint   `json:"entry_id"`
	Text    string `json:"text"`
}

// SentimentScore is the pipeline's verdict for one entry, in [-1, 1].
type SentimentScore struct {
	EntryID uint    `json:"entry_id"`
	Score   float64 `json:"score"`
}
