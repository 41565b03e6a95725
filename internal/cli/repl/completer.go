package repl

import (
	"sort"
	"strings"
)

// Completer provides command completion for the shell.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the given command lines. Built-in
// shell commands are always included.
func NewCompleter(commands ...string) *Completer {
	seen := make(map[string]bool)
	var all []string
	for _, cmd := range append(builtinCommands(), commands...) {
		if cmd = strings.TrimSpace(cmd); cmd != "" && !seen[cmd] {
			seen[cmd] = true
			all = append(all, cmd)
		}
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the command lines starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Known reports whether name is a top-level command.
func (c *Completer) Known(name string) bool {
	for _, cmd := range c.commands {
		top, _, _ := strings.Cut(cmd, " ")
		if top == name {
			return true
		}
	}
	return false
}

// Suggest returns top-level commands sharing the first letter of name.
func (c *Completer) Suggest(name string) []string {
	if name == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, cmd := range c.commands {
		top, _, _ := strings.Cut(cmd, " ")
		if top[0] == name[0] && !seen[top] {
			seen[top] = true
			out = append(out, top)
		}
	}
	return out
}
