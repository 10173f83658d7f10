package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
	"github.com/kyleking/gem-support/internal/schema"
	"github.com/kyleking/gem-support/internal/storage"
	_ "github.com/kyleking/gem-support/internal/storage/postgres" // registers the postgres driver
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Answer cached questions about the configured database",
		Description: `Lookups are cached for schema.cache_days[<env>] days. Environments without
an entry query the database on every call.`,
		Commands: []*cli.Command{
			{
				Name:   "tables",
				Usage:  "List base tables",
				Action: action(runTables),
			},
			{
				Name:      "has-table",
				Usage:     "Report whether a table exists",
				ArgsUsage: " <table>",
				Action:    action(runHasTable),
			},
			{
				Name:      "has-column",
				Usage:     "Report whether a table has a column (case-insensitive)",
				ArgsUsage: " <table> <column>",
				Action:    action(runHasColumn),
			},
			{
				Name:      "columns",
				Usage:     "Describe the columns of a table",
				ArgsUsage: " <table>",
				Action:    action(runColumns),
			},
			{
				Name:  "structure",
				Usage: "Describe every table in the schema",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "progress", Usage: "show a spinner on stderr while querying"},
				},
				Action: action(runStructure),
			},
			{
				Name:      "qualify",
				Usage:     "Prefix column names with a table name",
				ArgsUsage: " <table> <column>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "alias", Usage: "append \"as <column>\""},
					&cli.StringFlag{Name: "prefix", Usage: "append \"as <prefix>_<column>\""},
				},
				Action: action(runQualify),
			},
		},
	}
}

// openInspector connects to the configured database and cache. The returned
// function releases both.
func openInspector(ctx context.Context, rt *runtime) (*schema.Inspector, func() error, error) {
	source, err := storage.Open(ctx, rt.cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	store, err := newCacheStore(rt.cfg.Cache)
	if err != nil {
		_ = source.Close()
		return nil, nil, err
	}

	days, _ := rt.cfg.CacheDays(rt.cfg.Environment)
	prefix := cacheKeyPrefix(rt.cfg.Schema.KeyPrefix, rt.cfg.Database)

	rt.logger.Debugf("opened %s schema source, cache keys under %s", rt.cfg.Database.Driver, prefix)

	inspector := schema.NewInspector(
		source,
		schema.WithCache(store, days),
		schema.WithKeyPrefix(prefix),
		schema.WithLogger(rt.logger.WithField("environment", rt.cfg.Environment)),
	)

	closeAll := func() error {
		return stderrors.Join(source.Close(), store.Close())
	}

	return inspector, closeAll, nil
}

// cacheKeyPrefix appends a digest of the connection settings to prefix, so
// every database and schema gets its own cache keys in a shared store
func cacheKeyPrefix(prefix string, db config.DatabaseConfig) string {
	sum := sha256.Sum256([]byte(db.Driver + "\x00" + db.DSN + "\x00" + db.Schema))

	return prefix + hex.EncodeToString(sum[:4]) + "_"
}

// withInspector opens an inspector for the duration of fn
func withInspector(ctx context.Context, rt *runtime, fn func(*schema.Inspector) error) (err error) {
	inspector, closeAll, err := openInspector(ctx, rt)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closeAll(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, errors.ErrTypeDatabase, "failed to close connections")
		}
	}()

	return fn(inspector)
}

func runTables(ctx context.Context, _ *cli.Command, rt *runtime) error {
	return withInspector(ctx, rt, func(inspector *schema.Inspector) error {
		tables, err := inspector.AllTables(ctx)
		if err != nil {
			return err
		}

		return rt.print(rt.formatter.FormatList("Tables", tables))
	})
}

func runHasTable(ctx context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 1)
	if err != nil {
		return err
	}

	return withInspector(ctx, rt, func(inspector *schema.Inspector) error {
		exists, err := inspector.HasTable(ctx, args[0])
		if err != nil {
			return err
		}

		return rt.print(rt.formatter.FormatValue("exists", exists))
	})
}

func runHasColumn(ctx context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	return withInspector(ctx, rt, func(inspector *schema.Inspector) error {
		has, err := inspector.HasColumn(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		return rt.print(rt.formatter.FormatValue("exists", has))
	})
}

func runColumns(ctx context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 1)
	if err != nil {
		return err
	}

	return withInspector(ctx, rt, func(inspector *schema.Inspector) error {
		columns, err := inspector.TableColumnsInfo(ctx, args[0])
		if err != nil {
			return err
		}

		return rt.print(rt.formatter.FormatColumns(args[0], columns))
	})
}

func runStructure(ctx context.Context, cmd *cli.Command, rt *runtime) error {
	return withInspector(ctx, rt, func(inspector *schema.Inspector) error {
		if cmd.Bool("progress") {
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			s.Suffix = " reading schema..."
			s.Start()

			defer s.Stop()
		}

		structure, err := inspector.DBStructure(ctx)
		if err != nil {
			return err
		}

		return rt.print(rt.formatter.FormatStructure(structure))
	})
}

func runQualify(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return errors.NewUsageError("expected a table and at least one column", appName+" qualify"+cmd.ArgsUsage)
	}

	alias := schema.NoAlias()

	switch {
	case cmd.String("prefix") != "":
		alias = schema.PrefixAlias(cmd.String("prefix"))
	case cmd.Bool("alias"):
		alias = schema.BareAlias()
	}

	return rt.print(rt.formatter.FormatList("Columns", schema.QualifyColumns(args[0], args[1:], alias)))
}
