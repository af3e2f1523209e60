package discord

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/bwmarrin/discordgo"

	"duque/internal/bot"
)

const syncAttempts = 5

// CommandAPI is the REST call used to publish global slash commands.
type CommandAPI interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// SyncCommands replaces the application's global slash commands with defs.
// When the cached hashes match defs nothing is sent and false is returned.
func SyncCommands(ctx context.Context, api CommandAPI, appID string, defs []*discordgo.ApplicationCommand, cache *HashCache, log *slog.Logger) (bool, error) {
	wanted := hashCommands(defs)

	cached, err := cache.Load()
	if err != nil {
		log.Warn("Ignoring unreadable command cache", "error", err)
	}
	if cache != nil && len(cached) > 0 && maps.Equal(cached, wanted) {
		log.Info("Slash commands unchanged, skipping sync", "commands", len(defs))
		return false, nil
	}

	var created []*discordgo.ApplicationCommand
	err = bot.Retry(ctx, bot.NewRESTLimiter(), syncAttempts, func() error {
		var err error
		created, err = api.ApplicationCommandBulkOverwrite(appID, "", defs, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("overwrite application commands: %w", err)
	}

	for _, c := range created {
		log.Debug("Registered slash command", "name", c.Name, "id", c.ID)
	}
	log.Info("Slash commands synced", "commands", len(created))

	if err := cache.Save(wanted); err != nil {
		log.Warn("Failed to save command cache", "error", err)
	}
	return true, nil
}
