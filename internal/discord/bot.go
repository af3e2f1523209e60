// Package discord runs the bot against the Discord gateway.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"duque/internal/access"
	"duque/internal/admin"
	"duque/internal/bot"
	"duque/internal/command"
	"duque/internal/config"
	"duque/internal/storage"
	"duque/internal/version"
	"duque/pkg/cmd"
	"duque/pkg/jobmgr"
)

// sweepWorkers bounds concurrent guild registrations after Ready.
const sweepWorkers = 4

// Bot is the Discord runtime: it owns the gateway session and routes events
// to slash commands, trigger resolution and the owner console.
type Bot struct {
	cfg      *config.Config
	storage  *storage.Storage
	access   *access.Evaluator
	registry *cmd.Registry
	console  *cmd.Registry
	jobs     *jobmgr.Manager
	log      *slog.Logger

	dg   *discordgo.Session
	deps *command.Deps
}

// New prepares a bot serving the commands in registry. A nil registry means
// cmd.DefaultRegistry.
func New(cfg *config.Config, store *storage.Storage, registry *cmd.Registry, log *slog.Logger) *Bot {
	if registry == nil {
		registry = cmd.DefaultRegistry
	}
	log = log.With("component", "discord")
	return &Bot{
		cfg:      cfg,
		storage:  store,
		access:   access.NewEvaluator(cfg.BotOwnerID, store),
		registry: registry,
		console:  admin.NewRegistry(),
		jobs:     jobmgr.NewManager(log),
		log:      log,
	}
}

// Run connects to Discord and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg
	b.deps = &command.Deps{
		Storage: b.storage,
		Access:  b.access,
		DM:      bot.NewDMSender(dg, b.log),
		Log:     b.log,
		Version: version.String(b.cfg.AppVersion),
	}

	dg.Identify.Intents = intents(b.cfg.MessageContentIntent)
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, s, r) })
	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) { b.onGuildCreate(ctx, s, g) })
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) { b.onInteractionCreate(ctx, s, i) })
	if b.cfg.MessageContentIntent {
		dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) { b.onMessageCreate(ctx, s, m) })
	} else {
		b.log.Info("Message content intent disabled, prefix triggers and the owner console are off")
	}

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info("Shutdown signal received, cleaning up")
	for _, j := range b.jobs.List() {
		_ = b.jobs.Stop(j.Name)
	}
	return nil
}

func intents(messageContent bool) discordgo.Intent {
	i := discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	if messageContent {
		i |= discordgo.IntentMessageContent
	}
	return i
}

// appID returns the application ID, preferring the configured client ID.
func (b *Bot) appID() (string, error) {
	if b.cfg.DiscordClientID != "" {
		return b.cfg.DiscordClientID, nil
	}
	if u := b.dg.State.User; u != nil && u.ID != "" {
		return u.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

func (b *Bot) syncCommands(ctx context.Context) {
	appID, err := b.appID()
	if err != nil {
		b.log.Error("Failed to resolve application ID", "error", err)
		return
	}
	defs := command.SlashDefinitions(b.registry)
	if _, err := SyncCommands(ctx, b.dg, appID, defs, NewHashCache(b.cfg.CommandCacheDir), b.log); err != nil {
		b.log.Error("Failed to sync slash commands", "error", err)
	}
}
