// Package access decides who may manage a channel's custom commands.
package access

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	st "duque/internal/storagetypes"
)

// Member is the guild-side view of a caller.
type Member struct {
	RoleIDs      []string
	Permissions  int64
	IsGuildOwner bool
}

// Caller identifies who issued an action. Member is nil outside a guild.
type Caller struct {
	UserID string
	Member *Member
}

// ConfigSource looks up channel configuration. *storage.Storage implements it.
type ConfigSource interface {
	GetChannelConfig(ctx context.Context, channelID string) (*st.ChannelConfig, error)
}

type Evaluator struct {
	ownerID string
	configs ConfigSource
}

func NewEvaluator(ownerID string, configs ConfigSource) *Evaluator {
	return &Evaluator{ownerID: ownerID, configs: configs}
}

func (e *Evaluator) IsBotOwner(userID string) bool {
	return e.ownerID != "" && userID == e.ownerID
}

// IsAdmin is true for the bot owner, the guild owner and members holding the
// Administrator permission.
func (e *Evaluator) IsAdmin(c Caller) bool {
	if e.IsBotOwner(c.UserID) {
		return true
	}
	if c.Member == nil {
		return false
	}
	return c.Member.IsGuildOwner || c.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// CanManageCommands is true for admins and for members holding one of the
// channel's editor roles. A channel without config denies everyone else.
func (e *Evaluator) CanManageCommands(ctx context.Context, c Caller, channelID string) (bool, error) {
	if e.IsAdmin(c) {
		return true, nil
	}
	if c.Member == nil {
		return false, nil
	}

	cfg, err := e.configs.GetChannelConfig(ctx, channelID)
	if err != nil {
		return false, fmt.Errorf("load channel config: %w", err)
	}
	if cfg == nil || len(cfg.EditorRoleIDs) == 0 {
		return false, nil
	}
	return slices.ContainsFunc(cfg.EditorRoleIDs, func(id string) bool {
		return slices.Contains(c.Member.RoleIDs, id)
	}), nil
}

// CallerFromInteraction builds a Caller from an interaction. guildOwnerID may
// be empty when the guild is not cached.
func CallerFromInteraction(i *discordgo.Interaction, guildOwnerID string) Caller {
	if i.Member == nil || i.Member.User == nil {
		c := Caller{}
		if i.User != nil {
			c.UserID = i.User.ID
		}
		return c
	}
	return Caller{
		UserID: i.Member.User.ID,
		Member: &Member{
			RoleIDs:      i.Member.Roles,
			Permissions:  i.Member.Permissions,
			IsGuildOwner: guildOwnerID != "" && i.Member.User.ID == guildOwnerID,
		},
	}
}
