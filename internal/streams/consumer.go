package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ScoreConsumer consumes sentiment scores from Redis Streams.
type ScoreConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
}

// NewScoreConsumer creates a consumer bound to the scores stream. The
// consumer group is created on first use; start ID "0" replays anything the
// pipeline produced while we were down.
func NewScoreConsumer(redisURL, consumerName string) (*ScoreConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	err = client.XGroupCreateMkStream(context.Background(), StreamSentimentScores, GroupJournalWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	// BUSYGROUP means the group already exists.

	return &ScoreConsumer{
		rdb:          client,
		groupName:    GroupJournalWorkers,
		consumerName: consumerName,
	}, nil
}

// ConsumeScores runs a blocking loop consuming scores from the stream.
// Messages that fail schema validation are acknowledged and dropped; retrying
// a malformed payload can never succeed.
func (c *ScoreConsumer) ConsumeScores(ctx context.Context, handler func(SentimentScore) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamSentimentScores, ">"},
			Count:    10,
			Block:    5000,
		}).Result()

		if err == redis.Nil {
			continue
		}
		if err != nil {
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration, which is normal on idle streams.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				payloadStr, ok := message.Values["payload"].(string)
				if !ok {
					slog.Error("Invalid message payload", "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}

				var raw map[string]interface{}
				if err := json.Unmarshal([]byte(payloadStr), &raw); err != nil {
					slog.Error("Failed to unmarshal score", "error", err, "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}
				if err := ValidateScorePayload(raw); err != nil {
					slog.Error("Score message rejected", "error", err, "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}

				var score SentimentScore
				if err := json.Unmarshal([]byte(payloadStr), &score); err != nil {
					slog.Error("Failed to unmarshal score", "error", err, "message_id", message.ID)
					c.ack(ctx, message.ID)
					continue
				}

				if err := handler(score); err != nil {
					slog.Error("Handler failed", "error", err, "entry_id", score.EntryID)
					// Message stays in PEL for retry, don't ACK.
					continue
				}
				c.ack(ctx, message.ID)
			}
		}
	}
}

func (c *ScoreConsumer) ack(ctx context.Context, messageID string) {
	if err := c.rdb.XAck(ctx, StreamSentimentScores, c.groupName, messageID).Err(); err != nil {
		slog.Error("Failed to ACK message", "error", err, "message_id", messageID)
	}
}

// Close closes the Redis client connection.
func (c *ScoreConsumer) Close() error {
	return c.rdb.Close()
}

// StartScoreConsumer starts the score consumer in a background goroutine and
// returns a stop function.
func StartScoreConsumer(redisURL string, db *gorm.DB) (stop func(), err error) {
	// Unique consumer name per process so replicas do not steal each
	// other's pending entries.
	consumer, err := NewScoreConsumer(redisURL, "journal-worker-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to create score consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := consumer.ConsumeScores(ctx, HandleSentimentScore(db)); err != nil {
			if err != context.Canceled {
				slog.Error("Score consumer stopped with error", "error", err)
			}
		}
	}()

	slog.Info("Score consumer started")

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
