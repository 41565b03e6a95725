package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/infra/buildinfo"
)

const metaRuntime = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "prodadmin",
		Usage:   "Product administration client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			StatusCommand(),
			ProductCommand(),
			ConfigCommand(),
			ShellCommand(),
		},
		Metadata:             map[string]any{},
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Before:               before,
		After:                after,
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return fmt.Errorf("unknown command %q", c.Args().First())
			}
			return cli.ShowAppHelp(c)
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend base URL (e.g., http://localhost:8080)",
			EnvVars: []string{"PRODADMIN_SERVER"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default ~/.prodadmin/cli.yaml)",
			EnvVars: []string{"PRODADMIN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"PRODADMIN_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server     string
	ConfigFile string
	Output     string
	Wide       bool
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:     c.String("server"),
		ConfigFile: c.String("config"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// overrides maps explicitly set global flags onto configuration keys.
func (f *GlobalFlags) overrides() map[string]any {
	m := make(map[string]any)
	if f.Server != "" {
		m["server"] = f.Server
	}
	if f.Output != "" {
		m["output"] = f.Output
	}
	if f.Verbose {
		m["log.level"] = "debug"
	}
	return m
}

// before builds the runtime once per process. Nested runs from the shell
// reuse it.
func before(c *cli.Context) error {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		rt.depth++
		return nil
	}

	rt, err := NewRuntime(ParseGlobalFlags(c), c.App.Reader, c.App.Writer, c.App.ErrWriter)
	if err != nil {
		return err
	}
	rt.depth = 1
	c.App.Metadata[metaRuntime] = rt
	return nil
}

// after releases the runtime when the outermost run ends.
func after(c *cli.Context) error {
	rt, ok := c.App.Metadata[metaRuntime].(*Runtime)
	if !ok {
		return nil
	}
	rt.depth--
	if rt.depth > 0 {
		return nil
	}
	delete(c.App.Metadata, metaRuntime)
	return rt.Close()
}

// runtimeFrom returns the runtime built by before.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("runtime not initialized")
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "error: %s\n", domain.UserMessage(err))
}
