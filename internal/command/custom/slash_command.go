package custom

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"duque/internal/command"
	"duque/internal/config"
	"duque/internal/storage"
)

type CommandCommand struct{}

func (c *CommandCommand) Name() string           { return "command" }
func (c *CommandCommand) Description() string    { return "Manage custom commands for this channel" }
func (c *CommandCommand) Category() string       { return config.CategoryCustom }
func (c *CommandCommand) Access() command.Access { return command.AccessEditor }

func (c *CommandCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minLen := 1
	trigger := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "trigger",
			Description: desc,
			Required:    true,
			MinLength:   &minLen,
			MaxLength:   maxTriggerLength,
		}
	}
	response := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "response",
			Description: desc,
			Required:    true,
			MinLength:   &minLen,
			MaxLength:   maxResponseLength,
		}
	}

	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a new command to this channel",
				Options: []*discordgo.ApplicationCommandOption{
					trigger("The trigger word (without the prefix)"),
					response("The response the bot will send"),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "edit",
				Description: "Edit an existing command in this channel",
				Options: []*discordgo.ApplicationCommandOption{
					trigger("The trigger word to edit"),
					response("The new response"),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a command from this channel",
				Options: []*discordgo.ApplicationCommandOption{
					trigger("The trigger word to remove"),
				},
			},
		},
	}
}

func (c *CommandCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	sub, opts := sc.Subcommand()
	channelID := sc.ChannelID()

	prefix, err := sc.Storage.TriggerPrefix(ctx, channelID)
	if err != nil {
		return err
	}

	trigger := storage.NormalizeTrigger(opts.String("trigger"))
	if msg := validateTrigger(trigger); msg != "" {
		return sc.Reply(msg)
	}
	shown := prefix + trigger

	switch sub {
	case "add":
		response := opts.String("response")
		if msg := validateResponse(response); msg != "" {
			return sc.Reply(msg)
		}
		res, err := sc.Storage.AddCommand(ctx, channelID, trigger, response, sc.UserID())
		if err != nil {
			return err
		}
		if !res.Success {
			return sc.Reply(fmt.Sprintf("⚠️ The command `%s` already exists in this channel. Use `/command edit %s <new_response>` to update it.", shown, trigger))
		}
		return sc.Reply(fmt.Sprintf("✅ Command `%s` has been added to this channel.", shown))

	case "edit":
		response := opts.String("response")
		if msg := validateResponse(response); msg != "" {
			return sc.Reply(msg)
		}
		res, err := sc.Storage.EditCommand(ctx, channelID, trigger, response, sc.UserID())
		if err != nil {
			return err
		}
		if !res.Success {
			return sc.Reply(fmt.Sprintf("❌ The command `%s` does not exist in this channel. Use `/command add` to create it first.", shown))
		}
		return sc.Reply(fmt.Sprintf("✅ Command `%s` has been updated.", shown))

	case "remove":
		res, err := sc.Storage.RemoveCommand(ctx, channelID, trigger, sc.UserID())
		if err != nil {
			return err
		}
		if !res.Success {
			return sc.Reply(fmt.Sprintf("❌ The command `%s` does not exist in this channel.", shown))
		}
		return sc.Reply(fmt.Sprintf("✅ Command `%s` has been removed from this channel.", shown))
	}

	return fmt.Errorf("unknown subcommand %q", sub)
}
