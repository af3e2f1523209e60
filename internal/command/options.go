package command

import "github.com/bwmarrin/discordgo"

// Options indexes interaction options by name.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

func OptionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) Options {
	m := make(Options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (o Options) String(name string) string {
	if opt, ok := o[name]; ok {
		if s, ok := opt.Value.(string); ok {
			return s
		}
	}
	return ""
}

func (o Options) Bool(name string) bool {
	if opt, ok := o[name]; ok {
		if b, ok := opt.Value.(bool); ok {
			return b
		}
	}
	return false
}

// Int returns an integer option. Discord sends numbers as JSON floats.
func (o Options) Int(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// Subcommand returns the invoked subcommand name (empty when the command has
// none) and its options.
func (c *SlashInteractionContext) Subcommand() (string, Options) {
	data := c.Event.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Name, OptionMap(data.Options[0].Options)
	}
	return "", OptionMap(data.Options)
}

// Role resolves a role option. Name is empty when Discord did not include the
// role in the resolved data.
func (c *SlashInteractionContext) Role(opts Options, name string) *discordgo.Role {
	id := opts.String(name)
	if id == "" {
		return nil
	}
	data := c.Event.ApplicationCommandData()
	if data.Resolved != nil {
		if r, ok := data.Resolved.Roles[id]; ok && r != nil {
			return r
		}
	}
	return &discordgo.Role{ID: id}
}
