// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesNestedSubcommands(t *testing.T) {
	var called string
	var received []string
	root := &Command{
		Name: "chained",
		Subcommands: []*Command{{
			Name: "messages",
			Subcommands: []*Command{{
				Name: "send",
				Run: func(args []string) error {
					called = "messages send"
					received = args
					return nil
				},
			}},
		}},
	}

	if err := root.Execute([]string{"messages", "send", "c-1", "hello"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "messages send" || strings.Join(received, " ") != "c-1 hello" {
		t.Errorf("dispatched %q with %v", called, received)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var limit int
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 20, "posts to show")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				t.Errorf("positional args = %v", args)
			}
			return nil
		},
	}
	if err := command.Execute([]string{"--limit", "5"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if limit != 5 {
		t.Errorf("limit = %d, want 5", limit)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name:   "chained",
		Output: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "messages", Run: func([]string) error { return nil }},
			{Name: "privacy", Run: func([]string) error { return nil }},
		},
	}
	err := root.Execute([]string{"mesages"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "messages"`) {
		t.Fatalf("Execute() error = %v, want a suggestion", err)
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Errorf("error category = %v, want validation", err)
	}
}

func TestUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "send",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			flagSet.String("attach", "", "file to attach")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}
	err := command.Execute([]string{"--atach", "photo.png"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --attach?") {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestHelpListsSubcommandsAndFlags(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:        "chained",
		Description: "Chained Social from the terminal.",
		Output:      &output,
		Subcommands: []*Command{
			{
				Name:    "feed",
				Summary: "Read and write posts",
				Flags: func() *pflag.FlagSet {
					return pflag.NewFlagSet("feed", pflag.ContinueOnError)
				},
			},
		},
		Examples: []Example{{Description: "Open the terminal UI", Command: "chained tui"}},
	}
	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help) error: %v", err)
	}
	for _, want := range []string{"Chained Social from the terminal.", "feed", "Read and write posts", "# Open the terminal UI", "chained <command> --help"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("help missing %q:\n%s", want, output.String())
		}
	}
}

func TestSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "chained",
		Output:      &bytes.Buffer{},
		Subcommands: []*Command{{Name: "tui"}},
	}
	if err := root.Execute(nil); err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "feed", 4},
		{"feed", "feed", 0},
		{"fed", "feed", 1},
		{"privcay", "privacy", 2},
		{"whoami", "logout", 6},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
