// Package admin implements the bot owner's maintenance commands. The same
// commands back the owner DM console and the command line tool.
package admin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"duque/internal/storage"
	"duque/pkg/cmd"
	"duque/pkg/jobmgr"
)

const DefaultPrefix = "!owner"

const msgUnknown = "❓ Unknown owner command. Use `%s help` for a list of commands."

// Guild is a server the bot is currently in.
type Guild struct {
	ID          string
	Name        string
	MemberCount int
	Channels    []Channel
}

type Channel struct {
	ID   string
	Name string
}

// Discord is the live bot connection. It is nil outside the bot process.
type Discord interface {
	Guilds() []Guild
	LeaveGuild(guildID string) error
	InviteURL() string
}

// Env is what owner commands operate on. Storage, Jobs and Out are required.
type Env struct {
	Storage *storage.Storage
	Discord Discord
	Jobs    *jobmgr.Manager
	// ActorID is recorded as the actor of history entries.
	ActorID string
	// Prefix is shown in usage hints.
	Prefix string
	Out    io.Writer
}

func (e *Env) say(format string, args ...any) {
	fmt.Fprintf(e.Out, format+"\n", args...)
}

func (e *Env) prefix() string {
	if e.Prefix == "" {
		return DefaultPrefix
	}
	return e.Prefix
}

func (e *Env) guild(id string) (Guild, bool) {
	if e.Discord == nil {
		return Guild{}, false
	}
	for _, g := range e.Discord.Guilds() {
		if g.ID == id {
			return g, true
		}
	}
	return Guild{}, false
}

// ownerCommand adapts a function to cmd.Command.
type ownerCommand struct {
	name    string
	aliases []string
	args    []string
	optArgs []string
	desc    string
	discord bool
	// failure is printed when run returns an error; %s is the first argument.
	failure string
	run     func(ctx context.Context, env *Env, args []string) error
}

func (c *ownerCommand) Name() string        { return c.name }
func (c *ownerCommand) Description() string { return c.desc }
func (c *ownerCommand) Aliases() []string   { return c.aliases }

func (c *ownerCommand) usage(name string) string {
	parts := []string{name}
	for _, a := range c.args {
		parts = append(parts, "<"+a+">")
	}
	for _, a := range c.optArgs {
		parts = append(parts, "["+a+"]")
	}
	return strings.Join(parts, " ")
}

func (c *ownerCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	env, ok := inv.Data.(*Env)
	if !ok {
		return fmt.Errorf("owner command %s: unsupported invocation data %T", c.name, inv.Data)
	}
	name := inv.Name
	if name == "" {
		name = c.name
	}

	if len(inv.Args) < len(c.args) {
		env.say("❌ Usage: `%s %s`", env.prefix(), c.usage(name))
		return nil
	}
	if c.discord && env.Discord == nil {
		env.say("❌ `%s` needs a running bot.", name)
		return nil
	}

	err := c.run(ctx, env, inv.Args)
	if err != nil && c.failure != "" {
		msg := c.failure
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, inv.Arg(0))
		}
		env.say("❌ %s", msg)
	}
	return err
}

// NewRegistry returns a registry holding every owner command.
func NewRegistry() *cmd.Registry {
	reg := cmd.NewRegistry()
	for _, c := range commands() {
		reg.Register(c)
	}
	return reg
}

// Execute runs one console line, given without the owner prefix. Errors are
// already reported to env.Out and are returned for logging.
func Execute(ctx context.Context, reg *cmd.Registry, env *Env, line string) error {
	args := cmd.SplitArgs(line)
	if len(args) == 0 {
		env.say(msgUnknown, env.prefix())
		return nil
	}

	name := strings.ToLower(args[0])
	c := reg.Get(name)
	if c == nil {
		env.say(msgUnknown, env.prefix())
		return nil
	}
	return c.Run(ctx, &cmd.Invocation{Name: name, Args: args[1:], Data: env})
}
