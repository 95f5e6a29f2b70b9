package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/thevault-app/thevault/internal/config"
	"github.com/thevault-app/thevault/internal/journal"
	"github.com/thevault-app/thevault/internal/models"
	"github.com/thevault-app/thevault/internal/notify"
	"gorm.io/gorm"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, db *gorm.DB, notifier *notify.Client) error {
	srv, mux, err := newServer(cfg, db, notifier)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop
// function so the caller can coordinate shutdown.
func Start(cfg *config.Config, db *gorm.DB, notifier *notify.Client) (stop func(), err error) {
	srv, mux, err := newServer(cfg, db, notifier)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, db *gorm.DB, notifier *notify.Client) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPartnerAnswered, handlePartnerAnswered(logger, db, notifier))
	mux.HandleFunc(TaskDailyReminder, handleDailyReminder(logger, db, notifier))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handlePartnerAnswered notifies the other member that an entry landed. The
// recipient's notification preference is honored here, at delivery time, so a
// preference change between enqueue and delivery wins.
func handlePartnerAnswered(logger *slog.Logger, db *gorm.DB, notifier *notify.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload struct {
			EntryID  uint `json:"entry_id"`
			Unlocked bool `json:"unlocked"`
		}
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		var entry models.Entry
		err := db.WithContext(ctx).
			Preload("Prompt").
			Preload("Couple").
			First(&entry, payload.EntryID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Error("Entry not found", "entry_id", payload.EntryID)
				return fmt.Errorf("entry not found: %w", asynq.SkipRetry)
			}
			return fmt.Errorf("failed to fetch entry: %w", err)
		}
		if entry.Couple == nil {
			return fmt.Errorf("entry has no vault: %w", asynq.SkipRetry)
		}

		partnerID := entry.Couple.PartnerID(entry.UserID)
		if partnerID == nil {
			// Vault went solo between enqueue and delivery.
			return nil
		}

		var partnerProfile models.Profile
		if err := db.WithContext(ctx).Where("user_id = ?", *partnerID).First(&partnerProfile).Error; err != nil {
			return fmt.Errorf("failed to fetch partner profile: %w", err)
		}
		if !partnerProfile.NotifyPartnerAnswered {
			logger.Info("Partner notification suppressed by preference", "user_id", *partnerID)
			return nil
		}

		var submitter models.User
		if err := db.WithContext(ctx).Preload("Profile").First(&submitter, entry.UserID).Error; err != nil {
			return fmt.Errorf("failed to fetch submitter: %w", err)
		}

		msg := notify.PartnerAnsweredMessage{
			UserID:      *partnerID,
			PartnerName: submitter.Profile.DisplayNameFor(&submitter),
			PromptText:  entry.Prompt.Text,
			Unlocked:    payload.Unlocked,
		}
		if err := notifier.PartnerAnswered(ctx, msg); err != nil {
			return fmt.Errorf("failed to deliver notification: %w", err)
		}

		logger.Info("Partner notified",
			"entry_id", payload.EntryID,
			"user_id", *partnerID,
			"unlocked", payload.Unlocked,
		)
		return nil
	}
}

// handleDailyReminder nudges every paired-vault member who has not answered
// today's prompt. "Today" is resolved per vault timezone.
func handleDailyReminder(logger *slog.Logger, db *gorm.DB, notifier *notify.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		prompts := journal.NewService(db, nil)

		var couples []models.Couple
		err := db.WithContext(ctx).
			Where("member2_id IS NOT NULL AND is_ended = ?", false).
			Find(&couples).Error
		if err != nil {
			return fmt.Errorf("failed to list vaults: %w", err)
		}

		sent := 0
		for i := range couples {
			couple := &couples[i]
			prompt, err := prompts.TodaysPrompt(ctx, couple)
			if err != nil {
				// No prompt for this vault's today; nothing to remind about.
				continue
			}

			for _, memberID := range []uint{couple.Member1ID, *couple.Member2ID} {
				var count int64
				err := db.WithContext(ctx).Model(&models.Entry{}).
					Where("user_id = ? AND prompt_id = ? AND couple_id = ?", memberID, prompt.ID, couple.ID).
					Count(&count).Error
				if err != nil {
					logger.Error("Reminder lookup failed", "user_id", memberID, "error", err.Error())
					continue
				}
				if count > 0 {
					continue
				}

				msg := notify.DailyReminderMessage{UserID: memberID, PromptText: prompt.Text}
				if err := notifier.DailyReminder(ctx, msg); err != nil {
					logger.Error("Reminder delivery failed", "user_id", memberID, "error", err.Error())
					continue
				}
				sent++
			}
		}

		logger.Info("Daily reminders processed", "vaults", len(couples), "sent", sent)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
