package custom

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"duque/internal/bot"
	"duque/internal/command"
	"duque/internal/config"
	"duque/internal/storage"
)

// PreviewCommand shows what the bot would answer to a message in this channel.
type PreviewCommand struct{}

func (c *PreviewCommand) Name() string           { return "preview" }
func (c *PreviewCommand) Description() string    { return "Show how the bot would answer a message in this channel" }
func (c *PreviewCommand) Category() string       { return config.CategoryCustom }
func (c *PreviewCommand) Access() command.Access { return command.AccessGuild }

func (c *PreviewCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "The message text, e.g. !hello",
				Required:    true,
				MaxLength:   maxResponseLength,
			},
		},
	}
}

func (c *PreviewCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	_, opts := sc.Subcommand()
	text := opts.String("message")
	channelID := sc.ChannelID()

	match, err := sc.Storage.ResolveTrigger(ctx, channelID, text)
	if err != nil {
		return err
	}
	if match != nil {
		reply := fmt.Sprintf("🔍 `%s%s` would reply with:\n\n%s", match.Prefix, match.Trigger, match.Response)
		return sc.ReplyChunks(bot.SplitMessage(reply, bot.MaxMessageLength))
	}

	prefix, err := sc.Storage.TriggerPrefix(ctx, channelID)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(text, prefix) {
		return sc.Reply(fmt.Sprintf("🔍 Messages must start with `%s` to trigger a command in this channel.", prefix))
	}
	trigger, ok := storage.ExtractTrigger(prefix, text)
	if !ok {
		return sc.Reply(fmt.Sprintf("🔍 There is no trigger word after `%s`.", prefix))
	}
	return sc.Reply(fmt.Sprintf("🔍 `%s%s` does not match any command in this channel.", prefix, trigger))
}
