// Command deploy-commands publishes the bot's slash commands globally and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	_ "duque/internal/command/channel"
	_ "duque/internal/command/core"
	_ "duque/internal/command/custom"

	"duque/internal/command"
	"duque/internal/config"
	"duque/internal/discord"
	"duque/internal/logging"
	"duque/pkg/cmd"
)

func main() {
	force := flag.Bool("force", false, "upload even when the command cache is current")
	dryRun := flag.Bool("dry-run", false, "list the commands without contacting Discord")
	flag.Parse()

	if err := run(*force, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "❌ Failed to register commands:", err)
		os.Exit(1)
	}
}

func run(force, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, closer := logging.New(cfg.Log)
	defer closer.Close()

	defs := command.SlashDefinitions(cmd.DefaultRegistry)
	if dryRun {
		printCommands(defs)
		return nil
	}

	if cfg.DiscordToken == "" || cfg.DiscordClientID == "" {
		return errors.New("DISCORD_TOKEN and DISCORD_CLIENT_ID must be set")
	}
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	cache := discord.NewHashCache(cfg.CommandCacheDir)
	if force {
		if err := cache.Clear(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🔄 Registering %d application command(s)...\n", len(defs))
	synced, err := discord.SyncCommands(ctx, dg, cfg.DiscordClientID, defs, cache, log)
	if err != nil {
		return err
	}
	if !synced {
		fmt.Println("✅ Application commands are already up to date (use -force to upload anyway).")
		return nil
	}
	fmt.Println("✅ Successfully registered application commands:")
	printCommands(defs)
	return nil
}

func printCommands(defs []*discordgo.ApplicationCommand) {
	for _, d := range defs {
		fmt.Printf("   /%s\n", d.Name)
	}
}
