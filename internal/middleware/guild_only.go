package middleware

import (
	"context"

	"duque/internal/command"
	"duque/pkg/cmd"
)

const msgGuildOnly = "❌ This command can only be used in a server channel."

// WithGuildOnly rejects commands that need a server channel when they are
// invoked from a DM.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return c.Run(ctx, inv)
			}
			meta, ok := command.Meta(c)
			if !ok || meta.Access() == command.AccessEveryone || sc.GuildID() != "" {
				return c.Run(ctx, inv)
			}
			return sc.Reply(msgGuildOnly)
		})
	}
}
