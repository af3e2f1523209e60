// Package core holds the informational slash commands.
package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"duque/internal/bot"
	"duque/internal/command"
	"duque/internal/config"
	"duque/internal/middleware"
	"duque/internal/version"
	"duque/pkg/cmd"
)

func init() {
	command.RegisterCommand(&HelpCommand{}, middleware.Defaults()...)
}

type HelpCommand struct {
	// Registry lists the commands to describe. Nil means the default registry.
	Registry *cmd.Registry
}

func (c *HelpCommand) Name() string           { return "help" }
func (c *HelpCommand) Description() string    { return "Show all supported bot commands" }
func (c *HelpCommand) Category() string       { return config.CategoryInformation }
func (c *HelpCommand) Access() command.Access { return command.AccessEveryone }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "dm",
				Description: "Send help via DM instead",
			},
		},
	}
}

func (c *HelpCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	_, opts := sc.Subcommand()

	reg := c.Registry
	if reg == nil {
		reg = cmd.DefaultRegistry
	}
	chunks := bot.SplitMessage(BuildHelp(reg, sc.Version), bot.MaxMessageLength)

	if !opts.Bool("dm") {
		return sc.ReplyChunks(chunks)
	}

	res := sc.DM.Send(ctx, sc.UserID(), chunks)
	if !res.Delivered() {
		return sc.Reply("❌ I couldn't send you a DM. Please check your DM privacy settings.")
	}
	if res.Messages == 1 {
		return sc.Reply("✅ Help sent to your DMs.")
	}
	return sc.Reply(fmt.Sprintf("✅ Help sent to your DMs in %d messages.", res.Messages))
}

// BuildHelp renders the command reference grouped by category.
func BuildHelp(reg *cmd.Registry, appVersion string) string {
	byCategory := make(map[string][]cmd.Command)
	for _, c := range reg.GetAll() {
		cat := ""
		if meta, ok := command.Meta(c); ok {
			cat = meta.Category()
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	slices.SortFunc(cats, func(a, b string) int {
		return cmp.Or(cmp.Compare(config.CategoryWeights[a], config.CategoryWeights[b]), strings.Compare(a, b))
	})

	var sb strings.Builder
	sb.WriteString("📘 **Supported bot commands**\n\n")
	for _, cat := range cats {
		if cat != "" {
			fmt.Fprintf(&sb, "**%s**\n", cat)
		}
		for _, c := range byCategory[cat] {
			fmt.Fprintf(&sb, "• `%s` - %s\n", usage(c), describe(c))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Tip: use the optional `dm` flag on `/help` and `/commands` to receive the output in DMs.")
	fmt.Fprintf(&sb, "\n\n_%s %s_", version.AppName, version.String(appVersion))
	return sb.String()
}

// usage renders "/name" followed by its subcommands, e.g. "/roles add|remove|list".
func usage(c cmd.Command) string {
	name := "/" + c.Name()
	sp, ok := cmd.Root(c).(command.SlashProvider)
	if !ok {
		return name
	}
	def := sp.SlashDefinition()
	if def == nil {
		return name
	}
	var subs []string
	for _, o := range def.Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			subs = append(subs, o.Name)
		}
	}
	if len(subs) == 0 {
		return name
	}
	return name + " " + strings.Join(subs, "|")
}

func describe(c cmd.Command) string {
	desc := c.Description()
	if meta, ok := command.Meta(c); ok && meta.Access() == command.AccessAdmin && !strings.Contains(desc, "admin only") {
		desc += " (admin only)"
	}
	return desc
}
