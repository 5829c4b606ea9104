package command

import (
	"fmt"
	"sort"
)

// Registry is the closed verb table. Names and aliases share one namespace.
type Registry struct {
	byWord map[string]*Command
	sorted []*Command
}

// Section is one category of commands as listed by help.
type Section struct {
	Category string
	Commands []*Command
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: every command has a Name and a Handler, and no word is used
// twice across names and aliases.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{byWord: make(map[string]*Command, len(cmds)*2)}
	for i := range cmds {
		cmd := &cmds[i]
		if cmd.Name == "" {
			return nil, fmt.Errorf("command #%d has no name", i)
		}
		if cmd.Handler == nil {
			return nil, fmt.Errorf("command %q has no handler", cmd.Name)
		}
		if prev, taken := r.byWord[cmd.Name]; taken {
			return nil, fmt.Errorf("duplicate command name %q (already used by %q)", cmd.Name, prev.Name)
		}
		r.byWord[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			if prev, taken := r.byWord[alias]; taken {
				return nil, fmt.Errorf("duplicate alias %q on %q (already used by %q)", alias, cmd.Name, prev.Name)
			}
			r.byWord[alias] = cmd
		}
		r.sorted = append(r.sorted, cmd)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	return r, nil
}

// DefaultRegistry returns a Registry of BuiltinCommands. It panics if the
// built-in table is inconsistent.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve finds the command a verb or alias names.
func (r *Registry) Resolve(word string) (*Command, bool) {
	cmd, ok := r.byWord[word]
	return cmd, ok
}

// Commands returns every command ordered by name.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.sorted...)
}

// Sections groups the commands visible to a player by category. Categories
// are ordered by name and admin commands are included only when admin is set.
func (r *Registry) Sections(admin bool) []Section {
	var out []Section
	at := make(map[string]int)
	for _, cmd := range r.sorted {
		if cmd.Admin && !admin {
			continue
		}
		i, ok := at[cmd.Category]
		if !ok {
			i = len(out)
			at[cmd.Category] = i
			out = append(out, Section{Category: cmd.Category})
		}
		out[i].Commands = append(out[i].Commands, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
