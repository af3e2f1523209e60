// Package channel holds the admin commands that configure a channel.
package channel

import (
	"duque/internal/command"
	"duque/internal/middleware"
)

func init() {
	command.RegisterCommand(&RolesCommand{}, middleware.Defaults()...)
	command.RegisterCommand(&TriggerCommand{}, middleware.Defaults()...)
}
