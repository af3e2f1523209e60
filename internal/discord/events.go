package discord

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"duque/internal/admin"
	"duque/internal/bot"
	"duque/internal/command"
	"duque/pkg/util"
)

const sweepJob = "guild-sweep"

func (b *Bot) onReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("Bot online", "user", r.User.String(), "guilds", len(r.Guilds), "version", b.deps.Version)

	if b.cfg.InitSlashCommands {
		b.syncCommands(ctx)
	} else {
		b.log.Info("Slash command sync skipped")
	}

	guilds := make([]*discordgo.Guild, len(r.Guilds))
	copy(guilds, r.Guilds)
	err := b.jobs.Go(ctx, sweepJob, func(ctx context.Context) error {
		return b.sweepGuilds(ctx, s, guilds)
	})
	if err != nil {
		b.log.Warn("Guild sweep not started", "error", err)
	}
}

// sweepGuilds registers every guild the bot is in and leaves blacklisted ones.
func (b *Bot) sweepGuilds(ctx context.Context, leaver guildLeaver, guilds []*discordgo.Guild) error {
	var left atomic.Int32
	err := util.Parallel(ctx, guilds, sweepWorkers, func(ctx context.Context, g *discordgo.Guild) error {
		name, err := b.guildName(ctx, g)
		if err != nil {
			return err
		}
		if !admitGuild(ctx, b.storage, leaver, b.log, g.ID, name) {
			left.Add(1)
		}
		return nil
	})
	b.log.Info("Guild sweep finished", "guilds", len(guilds), "left", left.Load())
	return err
}

// guildName returns the gateway name, or the stored one for guilds that are
// still unavailable at Ready.
func (b *Bot) guildName(ctx context.Context, g *discordgo.Guild) (string, error) {
	if g.Name != "" {
		return g.Name, nil
	}
	stored, err := b.storage.GetGuild(ctx, g.ID)
	if err != nil {
		return "", err
	}
	if stored != nil {
		return stored.GuildName, nil
	}
	return "Guild " + g.ID, nil
}

func (b *Bot) onGuildCreate(ctx context.Context, s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	admitGuild(ctx, b.storage, s, b.log, g.ID, g.Name)
}

func (b *Bot) onInteractionCreate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ownerID := b.guildOwnerID(ctx, s.State, s, i.GuildID)
	sc := command.NewSlashContext(b.deps, s, i, ownerID)
	_ = command.Dispatch(ctx, b.registry, sc)
}

type guildFetcher interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
}

// guildOwnerID reads the owner from the gateway cache and asks the REST API
// when the guild is not cached yet.
func (b *Bot) guildOwnerID(ctx context.Context, state *discordgo.State, api guildFetcher, guildID string) string {
	if guildID == "" {
		return ""
	}
	if state != nil {
		if g, err := state.Guild(guildID); err == nil && g.OwnerID != "" {
			return g.OwnerID
		}
	}
	g, err := api.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		b.log.Warn("Failed to fetch guild owner", "guild_id", guildID, "error", err)
		return ""
	}
	return g.OwnerID
}

func (b *Bot) onMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(ctx, s, stateDirectory{s: s, clientID: b.clientID(s)}, m.Message)
}

func (b *Bot) clientID(s *discordgo.Session) string {
	if b.cfg.DiscordClientID != "" {
		return b.cfg.DiscordClientID
	}
	if s.State.User != nil {
		return s.State.User.ID
	}
	return ""
}

// handleMessage routes owner DMs to the console and guild messages to the
// trigger resolver. Other DMs and bot messages are ignored.
func (b *Bot) handleMessage(ctx context.Context, s bot.Session, dir admin.Discord, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.GuildID == "" {
		if b.access.IsBotOwner(m.Author.ID) {
			b.handleOwnerDM(ctx, s, dir, m)
		}
		return
	}

	log := b.log.With("channel_id", m.ChannelID, "guild_id", m.GuildID)
	match, err := b.storage.ResolveTrigger(ctx, m.ChannelID, m.Content)
	if err != nil {
		log.Error("Failed to resolve trigger", "error", err)
		return
	}
	if match == nil {
		return
	}
	if err := bot.Message(s, m.ChannelID, match.Response); err != nil {
		log.Error("Failed to send trigger response", "trigger", match.Trigger, "error", err)
	}
}

func (b *Bot) handleOwnerDM(ctx context.Context, s bot.Session, dir admin.Discord, m *discordgo.Message) {
	line, ok := consoleLine(m.Content)
	if !ok {
		return
	}

	var out strings.Builder
	env := &admin.Env{
		Storage: b.storage,
		Discord: dir,
		Jobs:    b.jobs,
		ActorID: m.Author.ID,
		Prefix:  admin.DefaultPrefix,
		Out:     &out,
	}
	log := b.log.With("owner_command", line)
	if err := admin.Execute(ctx, b.console, env, line); err != nil {
		log.Error("Owner command failed", "error", err)
	}

	text := strings.TrimRight(out.String(), "\n")
	for _, chunk := range bot.SplitMessage(text, bot.MaxMessageLength) {
		if err := bot.Message(s, m.ChannelID, chunk); err != nil {
			log.Error("Failed to send owner console output", "error", err)
			return
		}
	}
}

// consoleLine strips the owner prefix from content.
func consoleLine(content string) (string, bool) {
	rest, ok := strings.CutPrefix(content, admin.DefaultPrefix)
	if !ok {
		return "", false
	}
	if rest != "" && !unicode.IsSpace([]rune(rest)[0]) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
