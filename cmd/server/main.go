package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"studybuddy/internal/api"
	"studybuddy/internal/api/handlers"
	"studybuddy/internal/config"
	"studybuddy/internal/gemini"
	"studybuddy/internal/logger"
	"studybuddy/internal/notify"
	"studybuddy/internal/service"
	"studybuddy/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := store.NewByEngine(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open store", "engine", cfg.Store.Engine, "error", err)
	}
	defer kv.Close()

	results := store.NewResultStore(kv, appLogger.With("component", "store"))
	if err := results.Load(ctx); err != nil {
		appLogger.Fatal("Failed to load store", "error", err)
	}

	newAnalyzer := func(ctx context.Context, apiKey string) (service.Analyzer, error) {
		return gemini.NewClient(ctx, apiKey, cfg.Gemini.Model, appLogger.With("component", "gemini"))
	}
	opts := []service.Option{service.WithAnalyzerFactory(newAnalyzer)}
	if cfg.Gemini.APIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, appLogger.With("component", "gemini"))
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini client", "error", err)
		}
		opts = append(opts, service.WithAnalyzer(geminiClient))
	} else if results.Settings().APIKey == "" {
		appLogger.Warn("GEMINI_API_KEY not set and no API key in settings; generation is disabled until one is saved")
	}

	notifier := notify.New(cfg.Notify.WebhookURL, appLogger.With("component", "notify"))
	opts = append(opts, service.WithNotifier(notifier))

	svc := service.New(results, appLogger.With("component", "service"), opts...)
	defer svc.Close()

	go notify.RunReminders(ctx, notifier, svc, cfg.Notify.ReminderInterval, cfg.Notify.ReminderWindow)

	handler := handlers.NewHandler(svc, appLogger.With("component", "api"), cfg.Server.MaxUploadBytes)
	router := api.NewRouter(handler, cfg.Server.FrontendURL, appLogger.With("component", "http"))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Server listening", "port", cfg.Server.Port, "store", cfg.Store.Engine)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	notifier.Wait()

	appLogger.Info("Server exited properly")
}
