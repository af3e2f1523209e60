package command

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"duque/internal/access"
	"duque/internal/bot"
	"duque/internal/storage"
)

// Deps are the services shared by every command invocation.
type Deps struct {
	Storage *storage.Storage
	Access  *access.Evaluator
	DM      *bot.DMSender
	Log     *slog.Logger
	Version string
}

// SlashInteractionContext is what the runtime passes to a slash command.
type SlashInteractionContext struct {
	*Deps
	Session bot.Session
	Event   *discordgo.InteractionCreate
	Caller  access.Caller

	replied bool
}

// NewSlashContext builds the context for one interaction. guildOwnerID may be
// empty when the guild is not cached.
func NewSlashContext(deps *Deps, s bot.Session, e *discordgo.InteractionCreate, guildOwnerID string) *SlashInteractionContext {
	return &SlashInteractionContext{
		Deps:    deps,
		Session: s,
		Event:   e,
		Caller:  access.CallerFromInteraction(e.Interaction, guildOwnerID),
	}
}

func (c *SlashInteractionContext) GuildID() string   { return c.Event.GuildID }
func (c *SlashInteractionContext) ChannelID() string { return c.Event.ChannelID }
func (c *SlashInteractionContext) UserID() string    { return c.Caller.UserID }

// Replied reports whether the interaction has been answered.
func (c *SlashInteractionContext) Replied() bool { return c.replied }

// Reply answers the interaction ephemerally. Once answered, further replies
// are sent as ephemeral followups.
func (c *SlashInteractionContext) Reply(content string) error {
	if c.replied {
		return bot.FollowupEphemeral(c.Session, c.Event.Interaction, content)
	}
	if err := bot.RespondEphemeral(c.Session, c.Event.Interaction, content); err != nil {
		return err
	}
	c.replied = true
	return nil
}

// ReplyEmbed is Reply for a single embed.
func (c *SlashInteractionContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	if c.replied {
		return bot.FollowupEmbedEphemeral(c.Session, c.Event.Interaction, embed)
	}
	if err := bot.RespondEmbedEphemeral(c.Session, c.Event.Interaction, embed); err != nil {
		return err
	}
	c.replied = true
	return nil
}

// ReplyChunks sends the first chunk as the reply and the rest as followups.
func (c *SlashInteractionContext) ReplyChunks(chunks []string) error {
	for _, chunk := range chunks {
		if err := c.Reply(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Logger returns the command logger scoped to this interaction.
func (c *SlashInteractionContext) Logger() *slog.Logger {
	log := slog.Default()
	if c.Deps != nil && c.Log != nil {
		log = c.Log
	}
	return log.With("guild_id", c.GuildID(), "channel_id", c.ChannelID(), "user_id", c.UserID())
}
