package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/careerhub/api"
	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/advisor"
	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/gradio"
	"github.com/garnizeh/careerhub/internal/jobs"
	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/internal/repository/sqlite"
	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/internal/voice"
	"github.com/garnizeh/careerhub/internal/xp"
	"github.com/garnizeh/careerhub/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	api.SetLogger(logger)
	gradio.SetLogger(logger)
	voice.SetLogger(logger)
	storage.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting careerhub", slog.String("version", version), slog.String("build_time", buildTime), slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}
	repo := sqlite.New(d, logger)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open object storage: %v", err)
	}
	schemas, err := schema.Default()
	if err != nil {
		log.Fatalf("Failed to load JSON schemas: %v", err)
	}

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("amqp unavailable, notifications stay in-app", slog.Any("err", err))
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	gradioClient := gradio.New(cfg.Gradio.URL, cfg.Gradio.Timeout, nil)
	voiceClient := voice.New(cfg.Voice.URL, cfg.Voice.Timeout, nil)

	pool := jobs.NewWorkerPool(jobs.NewRepository(d), jobs.Handlers(jobs.Deps{
		Resumes:   repo,
		Store:     store,
		Reviewer:  gradioClient,
		Publisher: publisher,
		Logger:    logger,
	}), logger, cfg.Workers)
	pool.SetLease(cfg.JobLease)
	pool.Start(ctx)

	var codes notify.CodeSender = notify.LogCodeSender{Logger: logger}
	if cfg.Mail.Driver == "gmail" {
		gs, err := notify.NewGmailCodeSender(ctx, cfg.Mail.CredentialsFile, cfg.Mail.TokenFile, cfg.Mail.From)
		if err != nil {
			log.Fatalf("Failed to set up gmail: %v", err)
		}
		codes = gs
	}

	notifier := notify.NewService(repo, pool, logger)
	xpService := xp.NewService(repo, repo, repo, notifier, logger)

	integrations := map[string]api.HealthChecker{
		"gradio": gradioClient,
		"voice":  voiceClient,
		"ollama": nil,
	}
	// The fallback stays a nil interface when Ollama is not configured.
	var fallback advisor.Fallback
	if cfg.Ollama.Enabled() {
		oc, err := ollama.NewDefaultClient(cfg.Ollama)
		if err != nil {
			logger.Warn("ollama disabled", slog.Any("err", err))
		} else {
			defer oc.Close()
			fallback = oc
			integrations["ollama"] = oc
		}
	}

	handler := api.SetupRoutes(cfg, version, buildTime, api.Services{
		Repo:         repo,
		XP:           xpService,
		Schemas:      schemas,
		Store:        store,
		Queue:        pool,
		Notifier:     notifier,
		Codes:        codes,
		CV:           gradioClient,
		Advisor:      advisor.New(gradioClient, fallback, schemas, logger),
		Voice:        voiceClient,
		Integrations: integrations,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Gradio calls can take minutes; the write timeout covers the slowest of them.
		WriteTimeout: max(cfg.APITimeout, cfg.Gradio.Timeout+10*time.Second),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}
	pool.Stop()

	if err := d.Close(); err != nil {
		logger.Error("closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}
