// Package custom holds the slash commands that manage and inspect a channel's
// custom commands.
package custom

import (
	"duque/internal/command"
	"duque/internal/middleware"
)

func init() {
	command.RegisterCommand(&CommandCommand{}, middleware.Defaults()...)
	command.RegisterCommand(&ListCommand{}, middleware.Defaults()...)
	command.RegisterCommand(&PreviewCommand{}, middleware.Defaults()...)
	command.RegisterCommand(&HistoryCommand{}, middleware.Defaults()...)
}
