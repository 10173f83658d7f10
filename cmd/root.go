package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
	"github.com/kyleking/gem-support/internal/formatter"
	"github.com/kyleking/gem-support/internal/logging"
)

const appName = "gem-support"

// NewApp builds the command tree
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  appName,
		Usage: "String occurrence helpers and cached database schema lookups",
		Description: `gem-support locates the n-th occurrence of a search string for slicing and
wrapping text, and answers table and column questions about a database,
memoizing the answers for a configurable number of days per environment.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "environment name used to pick the schema cache lifetime"},
			&cli.StringFlag{Name: "driver", Usage: "database driver (duckdb, sqlite3, libsql, postgres)"},
			&cli.StringFlag{Name: "dsn", Usage: "database path or connection string"},
			&cli.StringFlag{Name: "schema", Usage: "database schema to inspect"},
			&cli.StringFlag{Name: "cache-dir", Usage: "directory for the file cache"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: string(formatter.FormatTable), Usage: "output format (table, json, yaml)"},
			&cli.BoolFlag{Name: "verbose", Usage: "show detailed processing steps"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			StrCommand(),
			SchemaCommand(),
			ConfigCommand(),
			CacheCommand(),
		},
	}
}

func Execute() error {
	ctx := context.Background()

	if err := NewApp().Run(ctx, os.Args); err != nil {
		printError(os.Stderr, err)
		return err
	}

	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	for _, suggestion := range errors.GetSuggestions(err) {
		fmt.Fprintf(w, "  - %s\n", suggestion)
	}
}

// runtime carries what every action needs once flags are parsed
type runtime struct {
	cfg       *config.Config
	logger    *logging.Logger
	formatter *formatter.Formatter
	out       io.Writer
	runID     string

	// loaded is cfg as read, before path expansion and log level rewrites
	loaded config.Config
}

func newRuntime(cmd *cli.Command) (*runtime, error) {
	overrides := map[string]any{}
	for _, name := range []string{"env", "driver", "dsn", "schema", "cache-dir", "log-level"} {
		overrides[name] = cmd.String(name)
	}

	// Only explicit flags override file and environment values
	for _, name := range []string{"verbose", "debug"} {
		if cmd.Bool(name) {
			overrides[name] = true
		}
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.NewConfigError(err, "")
	}

	loaded := *cfg
	cfg.ExpandAllPaths()

	switch {
	case cfg.Debug.Enabled:
		cfg.Logging.Level = "debug"
	case cfg.Debug.Verbose && logging.ParseLevel(cfg.Logging.Level) > logging.InfoLevel:
		cfg.Logging.Level = "info"
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.Warnf("falling back to stderr logging: %v", err)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeValidation, "invalid --format")
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	runID := uuid.NewString()

	return &runtime{
		cfg:       cfg,
		loaded:    loaded,
		logger:    logging.GetLogger().WithField("run_id", runID),
		formatter: formatter.NewFormatter(out, format),
		out:       out,
		runID:     runID,
	}, nil
}

// print writes one rendered result followed by a newline
func (rt *runtime) print(rendered string, err error) error {
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(rt.out, rendered)

	return err
}

// action runs fn with a runtime and logs how long it took
func action(fn func(ctx context.Context, cmd *cli.Command, rt *runtime) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		logger := rt.logger.WithField("command", cmd.Name)
		logger.Debug("command started")

		err = logging.LoggerMiddleware(logger, cmd.Name, func() error {
			return fn(ctx, cmd, rt)
		})
		if err != nil {
			logger.WithField("error_type", errors.GetType(err)).Debug("command failed")
		}

		return err
	}
}

// requireArgs returns exactly n positional arguments
func requireArgs(cmd *cli.Command, n int) ([]string, error) {
	args := cmd.Args()
	if args.Len() != n {
		return nil, errors.NewUsageError(
			fmt.Sprintf("expected exactly %d argument(s), got %d", n, args.Len()),
			appName+" "+cmd.Name+cmd.ArgsUsage,
		)
	}

	return args.Slice(), nil
}
