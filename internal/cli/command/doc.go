// Package command provides the CLI commands of prodadmin.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and the interactive shell. In single-command mode
// the session credential is kept in a Badger database so consecutive
// invocations share one session; the shell keeps it in memory.
package command
