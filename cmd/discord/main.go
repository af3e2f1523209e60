package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "duque/internal/command/channel"
	_ "duque/internal/command/core"
	_ "duque/internal/command/custom"

	"duque/internal/config"
	"duque/internal/discord"
	"duque/internal/logging"
	"duque/internal/storage"
	v "duque/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateDiscord(); err != nil {
		slog.Error("Invalid Discord configuration", "error", err)
		os.Exit(1)
	}

	log, closer := logging.New(cfg.Log)
	defer closer.Close()
	log.Info("Starting bot", "app", v.AppName, "version", v.String(cfg.AppVersion), "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	bot := discord.New(cfg, store, nil, log)
	if err := bot.Run(ctx); err != nil {
		log.Error("Discord bot error", "error", err)
		return
	}
	log.Info("Discord bot exited cleanly")
}
