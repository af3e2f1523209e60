package middleware

import (
	"context"
	"time"

	"duque/internal/command"
	"duque/pkg/cmd"
)

// WithCommandLogger logs every slash command execution with its outcome.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return c.Run(ctx, inv)
			}

			start := time.Now()
			err := c.Run(ctx, inv)

			sub, _ := sc.Subcommand()
			log := sc.Logger().With("command", c.Name(), "subcommand", sub, "took", time.Since(start))
			if err != nil {
				log.Warn("Command finished with error", "error", err)
				return err
			}
			log.Info("Command executed")
			return nil
		})
	}
}

// Defaults is the middleware chain every slash command is registered with.
// The logger runs first and sees the outcome of the access checks.
func Defaults() []cmd.Middleware {
	return []cmd.Middleware{WithAccessCheck(), WithGuildOnly(), WithCommandLogger()}
}
