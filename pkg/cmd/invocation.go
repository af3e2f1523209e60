// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is registered and
// dispatched (Discord slash, owner DM console, CLI) is defined by adapters that
// wrap this.
package cmd

import "context"

// Invocation carries the minimal input any command runner can pass: the name
// it was invoked by, positional arguments and an opaque payload. Adapters set
// Data to their context (a Discord interaction context, a console environment).
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Arg returns the i-th argument or "" when there are fewer arguments.
func (inv *Invocation) Arg(i int) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Command is the universal contract: identity plus execution. Permissions, flags,
// subcommands, and transport-specific registration stay in adapters.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names.
type Aliased interface {
	Aliases() []string
}
