package custom

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"duque/internal/bot"
	"duque/internal/command"
	"duque/internal/config"
	st "duque/internal/storagetypes"
)

const msgDMRefused = "❌ I couldn't send you a DM. Please check your DM privacy settings."

// ListCommand is /commands.
type ListCommand struct{}

func (c *ListCommand) Name() string           { return "commands" }
func (c *ListCommand) Description() string    { return "List all custom commands in this channel" }
func (c *ListCommand) Category() string       { return config.CategoryCustom }
func (c *ListCommand) Access() command.Access { return command.AccessGuild }

func (c *ListCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "dm",
				Description: "Send the list via DM instead",
			},
		},
	}
}

func (c *ListCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	_, opts := sc.Subcommand()
	channelID := sc.ChannelID()

	commands, err := sc.Storage.ListCommands(ctx, channelID)
	if err != nil {
		return err
	}
	prefix, err := sc.Storage.TriggerPrefix(ctx, channelID)
	if err != nil {
		return err
	}

	if len(commands) == 0 {
		return sc.Reply("📭 No commands registered in this channel. Use `/command add` to create one.")
	}

	chunks := bot.SplitMessage(formatCommandList(prefix, commands), bot.MaxMessageLength)
	log := sc.Logger().With("command", c.Name())

	if opts.Bool("dm") {
		res := sc.DM.Send(ctx, sc.UserID(), chunks)
		if !res.Delivered() {
			log.Info("Command list DM not delivered", "outcome", res.Outcome, "sent", res.Messages)
			return sc.Reply(msgDMRefused)
		}
		log.Info("Sent command list via DM", "messages", res.Messages)
		if res.Messages == 1 {
			return sc.Reply("✅ Command list sent to your DMs.")
		}
		return sc.Reply(fmt.Sprintf("✅ Command list sent to your DMs in %d messages.", res.Messages))
	}

	if len(chunks) > 1 {
		log.Info("Split command list", "messages", len(chunks))
	}
	return sc.ReplyChunks(chunks)
}

func formatCommandList(prefix string, commands []st.CustomCommand) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 **Commands in this channel** (%d):\n\n", len(commands))
	for i, cmd := range commands {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "• `%s%s` → %s", prefix, cmd.Trigger, cmd.CurrentResponse)
		fmt.Fprintf(&sb, "\n   ↳ added by <@%s> %s", cmd.CreatedByUserID, timestamp(cmd.CreatedAt, "R"))
		if cmd.UpdatedAt != cmd.CreatedAt {
			fmt.Fprintf(&sb, ", edited by <@%s> %s", cmd.UpdatedByUserID, timestamp(cmd.UpdatedAt, "R"))
		}
	}
	return sb.String()
}
