package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kerhoff/wishlist/internal/api"
	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/config"
	"github.com/Kerhoff/wishlist/internal/handlers"
	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/metrics"
	"github.com/Kerhoff/wishlist/internal/miniapp"
	"github.com/Kerhoff/wishlist/internal/render"
	"github.com/Kerhoff/wishlist/internal/storage"
	"github.com/Kerhoff/wishlist/internal/telegram"
	"github.com/Kerhoff/wishlist/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting Wishlist...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Local storage for settings
	ls, err := storage.Open(ctx, cfg, l)
	if err != nil {
		l.Fatalf("Failed to open local storage: %v", err)
	}
	defer ls.Close()

	renderer, err := render.New()
	if err != nil {
		l.Fatalf("Failed to load templates: %v", err)
	}

	// Launch data is verified by the backend unless there is none.
	var verifier host.Verifier
	if !cfg.DemoMode {
		client, err := apiclient.New(apiclient.Config{
			BaseURL: cfg.BackendURL,
			APIPath: cfg.BackendAPIPath,
			Timeout: cfg.BackendTimeout,
			Logger:  l,
		})
		if err != nil {
			l.Fatalf("Failed to create backend client: %v", err)
		}
		verifier = client
	} else {
		l.Warn("DEMO_MODE is on, serving demo data only")
	}
	adapter := host.NewAdapter(verifier, ls, cfg.DemoUserID, l)

	manager := miniapp.NewManager(miniapp.Config{
		BackendURL:         cfg.BackendURL,
		APIPath:            cfg.BackendAPIPath,
		Timeout:            cfg.BackendTimeout,
		Demo:               cfg.DemoMode,
		NotificationsLimit: cfg.NotificationsLimit,
		NoticeTTL:          cfg.NoticeTTL,
	}, adapter, ls, l)
	defer manager.Close()

	go manager.StartSweeper(ctx, 5*time.Minute)

	// HTTP server for the mini app
	apiServer := api.NewServer(manager, renderer, l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// Telegram launcher bot
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(cfg.WebAppURL, l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("wishes", handlers.NewWishesHandler(manager, l))
		bot.RegisterCommand("wish", handlers.NewWishAddHandler(manager, l))

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	l.Info("Wishlist started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("Metrics server shutdown: %v", err)
	}

	l.Info("Wishlist stopped")
}
