// Package commandtest builds slash command interactions against an in-memory store.
package commandtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"

	"duque/internal/access"
	"duque/internal/bot"
	"duque/internal/bot/bottest"
	"duque/internal/command"
	"duque/internal/docstore"
	"duque/internal/storage"
	"duque/pkg/cmd"
)

const (
	OwnerID   = "owner-1"
	GuildID   = "guild-1"
	ChannelID = "chan-1"
)

// Env is one test's bot environment.
type Env struct {
	Deps     *command.Deps
	Storage  *storage.Storage
	Session  *bottest.Session
	Registry *cmd.Registry
}

// New returns an environment with cmds registered under mws.
func New(t *testing.T, mws []cmd.Middleware, cmds ...command.DiscordCommand) *Env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.New(docstore.NewMemory(), storage.DefaultLimits(), log)
	t.Cleanup(func() { _ = store.Close() })

	sess := &bottest.Session{}
	reg := cmd.NewRegistry()
	for _, c := range cmds {
		reg.Register(command.Wrap(c, mws...))
	}

	return &Env{
		Deps: &command.Deps{
			Storage: store,
			Access:  access.NewEvaluator(OwnerID, store),
			DM:      bot.NewDMSender(sess, log),
			Log:     log,
			Version: "test",
		},
		Storage:  store,
		Session:  sess,
		Registry: reg,
	}
}

// Run dispatches e and returns the context it ran with.
func (env *Env) Run(t *testing.T, e *discordgo.InteractionCreate) *command.SlashInteractionContext {
	t.Helper()
	sc := command.NewSlashContext(env.Deps, env.Session, e, "")
	_ = command.Dispatch(context.Background(), env.Registry, sc)
	return sc
}

// Slash builds a guild interaction for command name from a member with perms
// and roles.
func Slash(name, userID string, perms int64, roles []string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-" + name,
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   GuildID,
		ChannelID: ChannelID,
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: userID},
			Roles:       roles,
			Permissions: perms,
		},
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

// Admin builds a guild interaction from a member with the Administrator bit.
func Admin(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return Slash(name, "admin-1", discordgo.PermissionAdministrator, nil, opts...)
}

// DM builds an interaction sent from a direct message.
func DM(name, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-" + name,
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "dm-channel",
		User:      &discordgo.User{ID: userID},
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

// WithRoles adds resolved role data to e.
func WithRoles(e *discordgo.InteractionCreate, roles ...*discordgo.Role) *discordgo.InteractionCreate {
	data := e.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{Roles: map[string]*discordgo.Role{}}
	for _, r := range roles {
		data.Resolved.Roles[r.ID] = r
	}
	e.Data = data
	return e
}

func Sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: opts,
	}
}

func Str(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func Bool(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func Int(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func Role(name, roleID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: roleID}
}
