package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kyleking/gem-support/internal/errors"
)

// runApp runs the CLI with isolated configuration and returns stdout
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return runAppWithEnv(t, nil, args...)
}

// runAppWithEnv is runApp with extra environment variables applied last
func runAppWithEnv(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("GEM_SUPPORT_CONFIG", filepath.Join(dir, "config.json"))
	t.Setenv("GEM_SUPPORT_DOTENV", filepath.Join(dir, ".env"))
	t.Setenv("GEM_SUPPORT_LOG_LEVEL", "error")
	t.Setenv("GEM_SUPPORT_CACHE_STORE", "memory")

	for key, value := range env {
		t.Setenv(key, value)
	}

	var out bytes.Buffer

	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run(context.Background(), append([]string{appName}, args...))

	return strings.TrimRight(out.String(), "\n"), err
}

func TestCommandTree(t *testing.T) {
	app := NewApp()

	expected := map[string][]string{
		"str":    {"positions", "position", "after", "before", "between", "wrap", "escape", "shorten", "headline"},
		"schema": {"tables", "has-table", "has-column", "columns", "structure", "qualify"},
		"config": {"save"},
		"cache":  {"stats", "cleanup", "clear"},
	}

	for name, subcommands := range expected {
		command := app.Command(name)
		if command == nil {
			t.Fatalf("missing command %q", name)
		}

		for _, sub := range subcommands {
			if command.Command(sub) == nil {
				t.Errorf("missing subcommand %s %s", name, sub)
			}
		}
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := runApp(t, "--format", "xml", "str", "headline", "created_at")
	if !errors.IsType(err, errors.ErrTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := runApp(t, "--driver", "oracle", "config")
	if !errors.IsType(err, errors.ErrTypeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	if len(errors.GetSuggestions(err)) == 0 {
		t.Error("expected a suggestion for configuration errors")
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "plain error",
			err:      stderrors.New("boom"),
			expected: "Error: boom\n",
		},
		{
			name: "error with suggestions",
			err: errors.New(errors.ErrTypeValidation, "bad input").
				WithSuggestion("try again").
				WithSuggestion("read the help"),
			expected: "Error: validation: bad input\n  - try again\n  - read the help\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			printError(&buf, tt.err)

			if got := buf.String(); got != tt.expected {
				t.Errorf("printError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRequireArgs(t *testing.T) {
	_, err := runApp(t, "str", "position", "only-one")
	if !errors.IsType(err, errors.ErrTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	suggestions := errors.GetSuggestions(err)
	if len(suggestions) == 0 || !strings.Contains(suggestions[0], "<subject> <search>") {
		t.Errorf("expected usage suggestion, got %v", suggestions)
	}
}
