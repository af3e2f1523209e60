package channel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"duque/internal/command"
	"duque/internal/config"
)

var allowedPrefix = regexp.MustCompile(`^[!@#$%^&*()_+\-=\[\]{}|;:,.?~]$`)

const allowedPrefixList = "! @ # $ % ^ & * ( ) _ + - = [ ] { } | ; : , . ? ~"

type TriggerCommand struct{}

func (c *TriggerCommand) Name() string           { return "trigger" }
func (c *TriggerCommand) Description() string    { return "Set the trigger prefix for this channel (admin only)" }
func (c *TriggerCommand) Category() string       { return config.CategorySettings }
func (c *TriggerCommand) Access() command.Access { return command.AccessAdmin }

func (c *TriggerCommand) SlashDefinition() *discordgo.ApplicationCommand {
	one := 1
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prefix",
				Description: "One special character, e.g. ! or @",
				Required:    true,
				MinLength:   &one,
				MaxLength:   1,
			},
		},
	}
}

func (c *TriggerCommand) Run(ctx context.Context, sc *command.SlashInteractionContext) error {
	_, opts := sc.Subcommand()
	prefix := strings.TrimSpace(opts.String("prefix"))

	if !ValidPrefix(prefix) {
		return sc.Reply("❌ Invalid prefix. Use exactly one special character from:\n" + allowedPrefixList)
	}

	if err := sc.Storage.SetTriggerPrefix(ctx, sc.ChannelID(), sc.GuildID(), prefix); err != nil {
		return err
	}
	return sc.Reply(fmt.Sprintf("✅ Trigger prefix set to `%s` for this channel.\nExample: `%shello`", prefix, prefix))
}

// ValidPrefix reports whether prefix is a single allowed special character.
func ValidPrefix(prefix string) bool {
	return allowedPrefix.MatchString(prefix)
}
