package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"duque/pkg/cmd"
)

// Access is the minimum standing a caller needs to run a command.
type Access int

const (
	AccessEveryone Access = iota
	// AccessGuild requires a server channel.
	AccessGuild
	// AccessEditor requires a server channel and command management rights there.
	AccessEditor
	// AccessAdmin requires a server channel and administrator standing.
	AccessAdmin
)

// SlashProvider is implemented by commands registered as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// DiscordMeta is exposed by the Discord adapter so middleware can read the
// category and access level without depending on the concrete command type.
type DiscordMeta interface {
	Category() string
	Access() Access
}

// DiscordCommand is what individual Discord commands implement.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	Access() Access
	Run(ctx context.Context, c *SlashInteractionContext) error
}

// DiscordAdapter adapts a DiscordCommand to cmd.Command so it can live in the
// universal registry.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }
func (a *DiscordAdapter) Access() Access      { return a.Cmd.Access() }

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	sc, ok := inv.Data.(*SlashInteractionContext)
	if !ok {
		return fmt.Errorf("command %s: unsupported invocation data %T", a.Cmd.Name(), inv.Data)
	}
	return a.Cmd.Run(ctx, sc)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// RegisterCommand registers a Discord command with the default registry and applies middlewares.
func RegisterCommand(discordCmd DiscordCommand, mws ...cmd.Middleware) {
	cmd.DefaultRegistry.Register(Wrap(discordCmd, mws...))
}

// Wrap adapts discordCmd and applies middlewares without registering it.
func Wrap(discordCmd DiscordCommand, mws ...cmd.Middleware) cmd.Command {
	return cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...)
}

func AllCommands() []cmd.Command { return cmd.DefaultRegistry.GetAll() }

// Meta returns the Discord metadata of a possibly wrapped command.
func Meta(c cmd.Command) (DiscordMeta, bool) {
	m, ok := cmd.Root(c).(DiscordMeta)
	return m, ok
}

// SlashDefinitions returns the application command definitions of every
// registered slash command, sorted by name.
func SlashDefinitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.GetAll() {
		sp, ok := cmd.Root(c).(SlashProvider)
		if !ok {
			continue
		}
		def := sp.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
