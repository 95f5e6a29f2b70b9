package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/config"
	"github.com/thevault-app/thevault/internal/database"
	"github.com/thevault-app/thevault/internal/health"
	"github.com/thevault-app/thevault/internal/journal"
	"github.com/thevault-app/thevault/internal/models"
	"github.com/thevault-app/thevault/internal/notify"
	"github.com/thevault-app/thevault/internal/profile"
	"github.com/thevault-app/thevault/internal/spark"
	"github.com/thevault-app/thevault/internal/streams"
	"github.com/thevault-app/thevault/internal/vault"
	"github.com/thevault-app/thevault/internal/worker"
	"github.com/thevault-app/thevault/internal/wrapped"
)

func main() {
	cfg := config.Load()

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			log.Fatalf("Failed to initialize token encryption: %v", err)
		}
	} else {
		log.Println("WARNING: TOKEN_ENCRYPTION_KEY not set. OAuth tokens will be stored unencrypted.")
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.Env == "development" {
		if err := database.SeedContent(db); err != nil {
			log.Printf("Seed warning: %v", err)
		}
	}

	auth.InitProviders(cfg)

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		log.Fatalf("Failed to initialize task client: %v", err)
	}
	defer worker.CloseClient()

	publisher, err := streams.NewPublisher(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: sentiment publisher unavailable: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	notifier := notify.NewClient(cfg.NotifyWebhookURL, cfg.NotifyWebhookKey, cfg.NotifyStubMode, nil)

	vaults := vault.NewService(db)
	journals := journal.NewService(db, worker.NewSink(publisher, nil))
	sparks := spark.NewService(db)
	wraps := wrapped.NewService(db)
	profiles := profile.NewService(db, vaults)

	stopWorker, err := worker.Start(cfg, db, notifier)
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer stopScheduler()

	stopConsumer, err := streams.StartScoreConsumer(cfg.RedisURL, db)
	if err != nil {
		log.Printf("WARNING: score consumer unavailable: %v", err)
	} else {
		defer stopConsumer()
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
	})
	r.Use(sessions.Sessions("vault_session", store))

	r.GET("/health", gin.WrapF(health.Handler))

	r.GET("/auth/google", auth.HandleLogin)
	r.GET("/auth/google/callback", auth.HandleCallback(db))
	r.GET("/logout", auth.HandleLogout)

	authed := r.Group("/", auth.RequireAuth())
	{
		authed.GET("/me", profile.ShowHandler(profiles))
		authed.PATCH("/me", profile.UpdateHandler(profiles))

		authed.POST("/vaults", vault.CreateHandler(vaults))
		authed.POST("/vaults/join", vault.JoinHandler(vaults))
		authed.GET("/vaults", vault.ListHandler(vaults))
		authed.GET("/vaults/:id", vault.ShowHandler(vaults))
		authed.POST("/vaults/:id/select", vault.SelectHandler(vaults))
		authed.POST("/vaults/:id/end", vault.EndHandler(vaults))
		authed.POST("/vaults/:id/reactivate", vault.ReactivateRequestHandler(vaults))
		authed.POST("/vaults/:id/reactivate/approve", vault.ReactivateApproveHandler(vaults))
		authed.POST("/vaults/:id/reactivate/decline", vault.ReactivateDeclineHandler(vaults))
		authed.PATCH("/vaults/:id/settings", vault.SettingsHandler(vaults))

		authed.GET("/journal/today", journal.TodayHandler(journals, vaults))
		authed.POST("/journal/entries", journal.SubmitHandler(journals, vaults))
		authed.GET("/journal/unlock/:promptID", journal.UnlockCheckHandler(journals, vaults))
		authed.GET("/journal/history", journal.HistoryHandler(journals, vaults))
		authed.GET("/journal/entries/:id", journal.EntryHandler(journals, vaults))

		authed.GET("/sparks/random/:category", spark.RandomHandler(sparks))
		authed.GET("/sparks/previous/:category", spark.PreviousHandler(sparks))
		authed.POST("/sparks/:id/archive", spark.ArchiveHandler(sparks))
		authed.POST("/sparks/:id/unarchive", spark.UnarchiveHandler(sparks))
		authed.GET("/sparks/archived", spark.ArchivedListHandler(sparks))
		authed.GET("/sparks/counts", spark.CountsHandler(sparks))

		authed.GET("/wrapped", wrapped.ShowHandler(wraps, vaults))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
