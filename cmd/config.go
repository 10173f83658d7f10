package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display the active configuration",
		Description: `Show the current active configuration including all settings from file,
.env, environment variables, and command-line flags.`,
		Action: action(runConfig),
		Commands: []*cli.Command{
			{
				Name:   "save",
				Usage:  "Write the active configuration to the config file",
				Action: action(runConfigSave),
			},
		},
	}
}

func runConfig(_ context.Context, _ *cli.Command, rt *runtime) error {
	return rt.print(rt.formatter.FormatConfig(rt.cfg))
}

func runConfigSave(_ context.Context, _ *cli.Command, rt *runtime) error {
	if err := config.SaveConfig(&rt.loaded); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to save configuration").
			WithSuggestion("Set GEM_SUPPORT_CONFIG to a writable path")
	}

	_, err := fmt.Fprintln(rt.out, "configuration saved")

	return err
}
