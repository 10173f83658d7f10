package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/gem-support/internal/errors"
	"github.com/kyleking/gem-support/internal/strutil"
)

func StrCommand() *cli.Command {
	return &cli.Command{
		Name:  "str",
		Usage: "Locate, slice and wrap occurrences of a search string",
		Description: `Occurrences are counted from 1. An occurrence of 0 selects the last match.
Flags must come before the positional arguments.`,
		Commands: []*cli.Command{
			{
				Name:      "positions",
				Usage:     "List the offset of every occurrence",
				ArgsUsage: " <subject> <search>",
				Flags:     []cli.Flag{caseSensitiveFlag(true)},
				Action:    action(runPositions),
			},
			{
				Name:      "position",
				Usage:     "Print the offset of one occurrence",
				ArgsUsage: " <subject> <search>",
				Flags:     []cli.Flag{occurrenceFlag("occurrence", 1), caseSensitiveFlag(true)},
				Action:    action(runPosition),
			},
			{
				Name:      "after",
				Usage:     "Print the text after an occurrence",
				ArgsUsage: " <subject> <search>",
				Flags:     []cli.Flag{occurrenceFlag("occurrence", 1), caseSensitiveFlag(false)},
				Action:    action(runAfter),
			},
			{
				Name:      "before",
				Usage:     "Print the text before an occurrence",
				ArgsUsage: " <subject> <search>",
				Flags:     []cli.Flag{occurrenceFlag("occurrence", strutil.LastOccurrence), caseSensitiveFlag(true)},
				Action:    action(runBefore),
			},
			{
				Name:      "between",
				Usage:     "Print the text between two occurrences",
				ArgsUsage: " <subject> <start> <end>",
				Flags: []cli.Flag{
					occurrenceFlag("start-occurrence", 1),
					occurrenceFlag("end-occurrence", strutil.LastOccurrence),
					caseSensitiveFlag(false),
				},
				Action: action(runBetween),
			},
			{
				Name:      "wrap",
				Usage:     "Surround occurrences with markup",
				ArgsUsage: " <subject> <search>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "before", Value: "<b>", Usage: "text inserted before each match"},
					&cli.StringFlag{Name: "after", Usage: "text inserted after each match (default: the closing tag of --before)"},
					&cli.StringFlag{Name: "occurrences", Usage: "comma separated ordinals to wrap (default: all)"},
					caseSensitiveFlag(true),
				},
				Action: action(runWrap),
			},
			{
				Name:      "escape",
				Usage:     "Escape text for HTML",
				ArgsUsage: " <text>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "charset", Value: strutil.DefaultCharset, Usage: "charset of the input and output"},
					&cli.BoolFlag{Name: "keep-entities", Usage: "do not re-encode existing entities"},
				},
				Action: action(runEscape),
			},
			{
				Name:      "shorten",
				Usage:     "Truncate text to a length, wrapped in a titled span",
				ArgsUsage: " <text>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "length", Value: 20, Usage: "maximum number of characters"},
					&cli.BoolFlag{Name: "raw", Usage: "omit the surrounding span"},
				},
				Action: action(runShorten),
			},
			{
				Name:      "headline",
				Usage:     "Title case an identifier",
				ArgsUsage: " <text>",
				Action:    action(runHeadline),
			},
		},
	}
}

func occurrenceFlag(name string, value int64) cli.Flag {
	return &cli.IntFlag{Name: name, Value: value, Usage: "occurrence ordinal, 0 for the last"}
}

func caseSensitiveFlag(value bool) cli.Flag {
	return &cli.BoolFlag{Name: "case-sensitive", Value: value, Usage: "match case exactly"}
}

func runPositions(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	positions := strutil.Positions(args[0], args[1], cmd.Bool("case-sensitive"))

	return rt.print(rt.formatter.FormatPositions(positions))
}

func runPosition(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	pos, ok := strutil.OccurrencePosition(args[0], args[1], int(cmd.Int("occurrence")), cmd.Bool("case-sensitive"))
	if !ok {
		return errors.NewOccurrenceNotFoundError(args[1], int(cmd.Int("occurrence")))
	}

	return rt.print(rt.formatter.FormatValue("position", pos))
}

func runAfter(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	rest, ok := strutil.AfterOccurrence(args[0], args[1], int(cmd.Int("occurrence")), cmd.Bool("case-sensitive"))
	if !ok {
		return errors.NewOccurrenceNotFoundError(args[1], int(cmd.Int("occurrence")))
	}

	return rt.print(rt.formatter.FormatValue("after", rest))
}

func runBefore(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	head, ok := strutil.BeforeOccurrence(args[0], args[1], int(cmd.Int("occurrence")), cmd.Bool("case-sensitive"))
	if !ok {
		return errors.NewOccurrenceNotFoundError(args[1], int(cmd.Int("occurrence")))
	}

	return rt.print(rt.formatter.FormatValue("before", head))
}

func runBetween(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 3)
	if err != nil {
		return err
	}

	inner, ok := strutil.BetweenOccurrences(
		args[0], args[1], args[2],
		int(cmd.Int("start-occurrence")), int(cmd.Int("end-occurrence")),
		cmd.Bool("case-sensitive"),
	)
	if !ok {
		return errors.Newf(errors.ErrTypeNotFound, "no text between %q and %q", args[1], args[2]).
			WithSuggestion("Check that the start occurrence comes before the end occurrence")
	}

	return rt.print(rt.formatter.FormatValue("between", inner))
}

func runWrap(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 2)
	if err != nil {
		return err
	}

	occurrences, err := parseOrdinals(cmd.String("occurrences"))
	if err != nil {
		return err
	}

	before := cmd.String("before")
	after := cmd.String("after")

	if after == "" {
		after = closingTag(before)
	}

	wrapped := strutil.WrapOccurrences(args[0], args[1], before, after, occurrences, cmd.Bool("case-sensitive"))

	return rt.print(rt.formatter.FormatValue("wrapped", wrapped))
}

// closingTag turns "<b>" into "</b>" and leaves other wrappers unchanged
func closingTag(open string) string {
	if strings.HasPrefix(open, "<") && strings.HasSuffix(open, ">") && !strings.HasPrefix(open, "</") {
		name, _, _ := strings.Cut(strings.Trim(open, "<>"), " ")
		return "</" + name + ">"
	}

	return open
}

// parseOrdinals parses "1,3" into ordinals. Empty input selects every match.
func parseOrdinals(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	ordinals := make([]int, 0, len(parts))

	for _, part := range parts {
		ordinal, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeValidation, "invalid occurrence %q", part)
		}

		ordinals = append(ordinals, ordinal)
	}

	return ordinals, nil
}

func runEscape(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 1)
	if err != nil {
		return err
	}

	escaped, err := strutil.EscapeHTMLOptions(args[0], strutil.EscapeOptions{
		Double:  !cmd.Bool("keep-entities"),
		Charset: cmd.String("charset"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeValidation, "failed to escape text")
	}

	return rt.print(rt.formatter.FormatValue("escaped", escaped))
}

func runShorten(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 1)
	if err != nil {
		return err
	}

	short := strutil.ShortenSpan(args[0], int(cmd.Int("length")), cmd.Bool("raw"))

	return rt.print(rt.formatter.FormatValue("shortened", short))
}

func runHeadline(_ context.Context, cmd *cli.Command, rt *runtime) error {
	args, err := requireArgs(cmd, 1)
	if err != nil {
		return err
	}

	return rt.print(rt.formatter.FormatValue("headline", strutil.Headline(args[0])))
}
