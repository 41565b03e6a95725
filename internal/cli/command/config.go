package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/prodadmin-go/internal/cli/config"
	"github.com/yndnr/prodadmin-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:            "config",
		Usage:           "CLI configuration",
		HideHelpCommand: true,
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
			{
				Name:      "init",
				Usage:     "Write a configuration file with the default settings",
				ArgsUsage: "[PATH]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if rt.Format == output.FormatTable {
		return (&output.YAMLFormatter{}).Format(rt.Out, rt.Config)
	}
	return rt.Render(rt.Config)
}

func configPath(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	status := "present"
	if _, err := os.Stat(rt.ConfigPath); errors.Is(err, os.ErrNotExist) {
		status = "absent, using defaults"
	}
	fmt.Fprintf(rt.Out, "%s (%s)\n", rt.ConfigPath, status)
	return nil
}

func configInit(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = rt.ConfigPath
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Wrote %s\n", path)
	return nil
}
