package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"duque/internal/admin"
	"duque/internal/storage"
)

const invitePermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionUseSlashCommands

// InviteURL builds the OAuth2 link that adds the bot with the permissions it needs.
func InviteURL(clientID string) string {
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot+applications.commands&permissions=%d",
		clientID, invitePermissions)
}

type guildLeaver interface {
	GuildLeave(guildID string, options ...discordgo.RequestOption) error
}

// admitGuild records that the bot is in a guild and leaves it when it is
// blacklisted. It reports whether the bot stays.
func admitGuild(ctx context.Context, store *storage.Storage, leaver guildLeaver, log *slog.Logger, guildID, guildName string) bool {
	log = log.With("guild_id", guildID, "guild_name", guildName)

	res, err := store.RegisterGuildJoin(ctx, guildID, guildName)
	if err != nil {
		log.Error("Failed to register guild", "error", err)
		return true
	}
	if res.Allowed {
		log.Info("Joined guild", "reason", res.Reason)
		return true
	}

	log.Warn("Joined blacklisted guild, leaving")
	if err := leaver.GuildLeave(guildID, discordgo.WithContext(ctx)); err != nil {
		log.Error("Failed to leave guild", "error", err)
	}
	return false
}

// stateDirectory exposes the session's guild cache to owner commands.
type stateDirectory struct {
	s        *discordgo.Session
	clientID string
}

var _ admin.Discord = stateDirectory{}

func (d stateDirectory) Guilds() []admin.Guild {
	d.s.State.RLock()
	defer d.s.State.RUnlock()

	out := make([]admin.Guild, 0, len(d.s.State.Guilds))
	for _, g := range d.s.State.Guilds {
		ag := admin.Guild{ID: g.ID, Name: g.Name, MemberCount: g.MemberCount}
		for _, ch := range g.Channels {
			if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
				ag.Channels = append(ag.Channels, admin.Channel{ID: ch.ID, Name: ch.Name})
			}
		}
		out = append(out, ag)
	}
	return out
}

func (d stateDirectory) LeaveGuild(guildID string) error {
	return d.s.GuildLeave(guildID)
}

func (d stateDirectory) InviteURL() string {
	return InviteURL(d.clientID)
}
