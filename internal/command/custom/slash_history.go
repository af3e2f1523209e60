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
	st "duque/internal/storagetypes"
)

const (
	maxHistoryLimit = 100
	historyPreview  = 80
)

// HistoryCommand shows the audit log of command changes in the channel.
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string           { return "history" }
func (c *HistoryCommand) Description() string    { return "Show recent changes to this channel's commands" }
func (c *HistoryCommand) Category() string       { return config.CategoryCustom }
func (c *HistoryCommand) Access() command.Access { return command.AccessEditor }

func (c *HistoryCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minLimit := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "trigger",
				Description: "Only show changes to this trigger",
				MaxLength:   maxTriggerLength,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: "How many entries to show",
				MinValue:    &minLimit,
				MaxValue:    maxHistoryLimit,
			},
		},
	}
}

func (c *HistoryCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	_, opts := sc.Subcommand()
	channelID := sc.ChannelID()

	limit := sc.Storage.Limits().HistoryLimit
	if n, ok := opts.Int("limit"); ok && n > 0 {
		limit = int(min(n, maxHistoryLimit))
	}

	prefix, err := sc.Storage.TriggerPrefix(ctx, channelID)
	if err != nil {
		return err
	}

	trigger := storage.NormalizeTrigger(opts.String("trigger"))
	var entries []st.CommandHistoryEntry
	if trigger != "" {
		entries, err = sc.Storage.GetHistoryForTrigger(ctx, channelID, trigger)
		if len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		entries, err = sc.Storage.GetHistory(ctx, channelID, limit)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		if trigger != "" {
			return sc.Reply(fmt.Sprintf("📭 No history for `%s%s` in this channel.", prefix, trigger))
		}
		return sc.Reply("📭 No command history for this channel.")
	}

	var sb strings.Builder
	if trigger != "" {
		fmt.Fprintf(&sb, "🕘 **History for `%s%s`** (%d):\n\n", prefix, trigger, len(entries))
	} else {
		fmt.Fprintf(&sb, "🕘 **Command history** (%d):\n\n", len(entries))
	}
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(formatHistoryEntry(prefix, e))
	}
	return sc.ReplyChunks(bot.SplitMessage(sb.String(), bot.MaxMessageLength))
}

func formatHistoryEntry(prefix string, e st.CommandHistoryEntry) string {
	line := fmt.Sprintf("• %s **%s** `%s%s` by <@%s>", timestamp(e.Timestamp, "f"), e.Action, prefix, e.Trigger, e.ActorUserID)
	switch e.Action {
	case st.ActionCreate:
		if e.NewResponse != nil {
			line += "\n   ↳ " + shorten(*e.NewResponse, historyPreview)
		}
	case st.ActionUpdate:
		if e.PreviousResponse != nil && e.NewResponse != nil {
			line += fmt.Sprintf("\n   ↳ %s ⇒ %s", shorten(*e.PreviousResponse, historyPreview), shorten(*e.NewResponse, historyPreview))
		}
	case st.ActionDelete:
		if e.PreviousResponse != nil {
			line += "\n   ↳ was: " + shorten(*e.PreviousResponse, historyPreview)
		}
	}
	return line
}
