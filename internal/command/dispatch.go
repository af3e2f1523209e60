package command

import (
	"context"

	"duque/pkg/cmd"
)

const (
	msgUnknownCommand = "❌ Unknown command."
	msgCommandFailed  = "❌ An error occurred while executing this command."
)

// Dispatch runs the slash command named by the interaction. Every failure
// ends in exactly one visible reply; the returned error is for logging only.
func Dispatch(ctx context.Context, reg *cmd.Registry, sc *SlashInteractionContext) error {
	name := sc.Event.ApplicationCommandData().Name
	log := sc.Logger().With("command", name)

	c := reg.Get(name)
	if c == nil {
		log.Warn("Unknown command")
		if err := sc.Reply(msgUnknownCommand); err != nil {
			log.Error("Failed to reply to unknown command", "error", err)
		}
		return nil
	}

	err := c.Run(ctx, &cmd.Invocation{Name: name, Data: sc})
	if err == nil {
		return nil
	}

	log.Error("Command failed", "error", err)
	if replyErr := sc.Reply(msgCommandFailed); replyErr != nil {
		log.Error("Failed to send error reply", "error", replyErr)
	}
	return err
}
