// Command cli runs owner maintenance commands against the configured store
// without connecting to Discord.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"duque/internal/admin"
	"duque/internal/config"
	"duque/internal/logging"
	"duque/internal/storage"
	"duque/pkg/jobmgr"
)

// cliActor is recorded in command history when no owner ID is configured.
const cliActor = "cli"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Invalid configuration:", err)
		return 1
	}
	log, closer := logging.New(cfg.Log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	actor := cfg.BotOwnerID
	if actor == "" {
		actor = cliActor
	}
	env := &admin.Env{
		Storage: store,
		Jobs:    jobmgr.NewManager(log),
		ActorID: actor,
		Prefix:  filepath.Base(os.Args[0]),
		Out:     os.Stdout,
	}

	line := strings.Join(args, " ")
	if line == "" {
		line = "help"
	}
	if err := admin.Execute(ctx, admin.NewRegistry(), env, line); err != nil {
		log.Error("Command failed", "command", line, "error", err)
		return 1
	}
	return 0
}
