package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskPartnerAnswered = "notify:partner_answered"
	TaskDailyReminder   = "notify:daily_reminder"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueuePartnerAnswered queues a partner-answered notification for the entry
// that was just submitted. Retries up to 3 times and is retained for a day
// for inspection.
func EnqueuePartnerAnswered(entryID uint, unlocked bool) error {
	payload, err := json.Marshal(map[string]interface{}{
		"entry_id": entryID,
		"unlocked": unlocked,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskPartnerAnswered,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(1*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
