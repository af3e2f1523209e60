package middleware

import (
	"context"

	"duque/internal/command"
	"duque/pkg/cmd"
)

const (
	msgNoCommandPermission = "❌ You don't have permission to manage commands in this channel. Ask an admin to add your role with `/roles add`."
	msgAdminOnly           = "❌ Only server administrators can manage roles."
)

// WithAccessCheck enforces the command's access level: editors need command
// management rights in the channel, admin commands need administrator
// standing. Denials are answered ephemerally and are not errors.
func WithAccessCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return c.Run(ctx, inv)
			}
			meta, ok := command.Meta(c)
			if !ok {
				return c.Run(ctx, inv)
			}

			switch meta.Access() {
			case command.AccessEditor:
				allowed, err := sc.Access.CanManageCommands(ctx, sc.Caller, sc.ChannelID())
				if err != nil {
					return err
				}
				if !allowed {
					sc.Logger().Info("Command denied", "command", c.Name(), "required", "editor")
					return sc.Reply(msgNoCommandPermission)
				}
			case command.AccessAdmin:
				if !sc.Access.IsAdmin(sc.Caller) {
					sc.Logger().Info("Command denied", "command", c.Name(), "required", "admin")
					return sc.Reply(msgAdminOnly)
				}
			}
			return c.Run(ctx, inv)
		})
	}
}
