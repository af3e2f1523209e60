package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"duque/internal/command"
	"duque/internal/config"
	st "duque/internal/storagetypes"
)

type RolesCommand struct{}

func (c *RolesCommand) Name() string           { return "roles" }
func (c *RolesCommand) Description() string    { return "Manage which roles can edit commands in this channel" }
func (c *RolesCommand) Category() string       { return config.CategorySettings }
func (c *RolesCommand) Access() command.Access { return command.AccessAdmin }

func (c *RolesCommand) SlashDefinition() *discordgo.ApplicationCommand {
	role := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: desc,
			Required:    true,
		}}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Allow a role to manage commands in this channel",
				Options:     role("The role to allow"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Stop a role from managing commands in this channel",
				Options:     role("The role to remove"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List the editor roles of this channel",
			},
		},
	}
}

func (c *RolesCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	sub, opts := sc.Subcommand()
	channelID := sc.ChannelID()

	switch sub {
	case "add":
		role := sc.Role(opts, "role")
		if role == nil {
			return fmt.Errorf("roles add: missing role option")
		}
		res, err := sc.Storage.AddEditorRole(ctx, channelID, sc.GuildID(), role.ID)
		if err != nil {
			return err
		}
		if !res.Success {
			return sc.Reply(fmt.Sprintf("⚠️ Role **%s** is already an editor role for this channel.", roleName(role)))
		}
		return sc.Reply(fmt.Sprintf("✅ Role **%s** can now manage commands in this channel.", roleName(role)))

	case "remove":
		role := sc.Role(opts, "role")
		if role == nil {
			return fmt.Errorf("roles remove: missing role option")
		}
		res, err := sc.Storage.RemoveEditorRole(ctx, channelID, role.ID)
		if err != nil {
			return err
		}
		if !res.Success {
			if res.Reason == st.ReasonNoConfig {
				return sc.Reply("❌ No editor roles are configured for this channel.")
			}
			return sc.Reply(fmt.Sprintf("❌ Role **%s** is not an editor role for this channel.", roleName(role)))
		}
		return sc.Reply(fmt.Sprintf("✅ Role **%s** can no longer manage commands in this channel.", roleName(role)))

	case "list":
		cfg, err := sc.Storage.GetChannelConfig(ctx, channelID)
		if err != nil {
			return err
		}
		if cfg == nil || len(cfg.EditorRoleIDs) == 0 {
			return sc.Reply("📭 No editor roles configured for this channel. Only admins can manage commands.")
		}
		lines := make([]string, len(cfg.EditorRoleIDs))
		for i, id := range cfg.EditorRoleIDs {
			lines[i] = fmt.Sprintf("• <@&%s>", id)
		}
		return sc.Reply("📋 **Editor roles for this channel:**\n\n" + strings.Join(lines, "\n"))
	}

	return fmt.Errorf("unknown subcommand %q", sub)
}

// roleName falls back to a mention when Discord did not resolve the role.
func roleName(r *discordgo.Role) string {
	if r.Name != "" {
		return r.Name
	}
	return "<@&" + r.ID + ">"
}
