package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shortlink/internal/bot"
	"shortlink/internal/config"
	"shortlink/internal/database"
	"shortlink/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("Starting shortlink service...", "port", cfg.Port, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg)
	if err != nil {
		slog.Error("Could not open store", "driver", cfg.StoreDriver, "error", err)
		return
	}
	defer store.Close()
	if cfg.StoreDriver == config.DriverMemory {
		slog.Warn("Using in-memory store, links are lost on restart")
	}

	shortener := service.NewShortener(store,
		service.WithGenerator(service.NewGenerator(cfg.CodeLength)),
		service.WithMaxAttempts(cfg.MaxAttempts),
		service.WithExpiryEnforcement(cfg.EnforceExpiry),
	)

	botErr := make(chan error, 1)
	botRunning := false
	if cfg.TelegramToken != "" {
		tgBot, err := bot.NewTelegramBot(cfg.TelegramToken, shortener, cfg.BaseURL, cfg.QRSize)
		if err != nil {
			slog.Error("Could not initialize bot", "error", err)
			return
		}
		go func() { botErr <- tgBot.Start(ctx) }()
		botRunning = true
	} else {
		slog.Info("TELEGRAM_API_TOKEN not set, bot disabled")
	}

	server := service.NewServer(cfg.Port, cfg.BaseURL, cfg.QRSize, shortener)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(ctx) }()

	slog.Info("Service is up and running!")

	serverRunning := true
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		serverRunning = false
		if err != nil {
			slog.Error("Server stopped with error", "error", err)
		}
	case err := <-botErr:
		botRunning = false
		if err != nil {
			slog.Error("Bot stopped with error", "error", err)
		}
	}

	slog.Info("Shutting down gracefully...")
	stop()
	// Drain both frontends before the deferred store.Close runs.
	if serverRunning {
		if err := <-serverErr; err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}
	if botRunning {
		<-botErr
	}
	slog.Info("Shutdown complete")
}
