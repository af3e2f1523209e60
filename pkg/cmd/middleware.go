package cmd

// Middleware wraps a command (logging, permission checks). The wrapped type
// remains a Command.
type Middleware func(Command) Command

// Apply applies middlewares in order, so the last one in the list runs first.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
