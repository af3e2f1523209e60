package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultRegistry is the global registry used by the Discord adapter.
var DefaultRegistry = NewRegistry()

// Registry stores commands by name. It does not perform dispatch; each adapter
// looks up commands and invokes them with its own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. Usually called from init() or adapter setup.
// Registering the same name twice replaces the earlier command.
func (r *Registry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(c.Name())
	r.commands[name] = c
	if a, ok := Root(c).(Aliased); ok {
		for _, alias := range a.Aliases() {
			r.aliases[strings.ToLower(alias)] = name
		}
	}
}

// Get returns the command with the given name or alias, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	if c, ok := r.commands[name]; ok {
		return c
	}
	if target, ok := r.aliases[name]; ok {
		return r.commands[target]
	}
	return nil
}

// MustGet is Get for names that are known to be registered.
func (r *Registry) MustGet(name string) Command {
	c := r.Get(name)
	if c == nil {
		panic(fmt.Sprintf("cmd: %q is not registered", name))
	}
	return c
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
