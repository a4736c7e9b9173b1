// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/eventlog"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// programSummary is one row of the report: every invocation of one
// program name.
type programSummary struct {
	Program      string `json:"program"`
	Compiler     bool   `json:"compiler"`
	Invocations  int    `json:"invocations"`
	Compilations int    `json:"compilations"`
	Sources      int    `json:"sources"`
}

// summary describes an event log.
type summary struct {
	Path        string           `json:"path"`
	Format      string           `json:"format"`
	Size        int64            `json:"size"`
	Invocations int              `json:"invocations"`
	First       time.Time        `json:"first,omitzero"`
	Last        time.Time        `json:"last,omitzero"`
	Programs    []programSummary `json:"programs"`
}

func reportCommand(streams Streams) *cli.Command {
	var (
		events     string
		jsonOutput bool
		compilers  []string
		configPath string
	)

	return &cli.Command{
		Name:    "report",
		Summary: "Summarize a recorded event log per compiler",
		Description: `Print how many invocations each program made in a recorded event log,
how many of them compiled sources, and how many distinct source files
they covered.`,
		Usage: "compiledb report --events PATH [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("report", pflag.ContinueOnError)
			flagSet.StringVar(&events, "events", "", "event log to read (required)")
			flagSet.BoolVar(&jsonOutput, "json", false, "print the summary as JSON")
			flagSet.StringSliceVar(&compilers, "compiler", nil, "extra program name to treat as a compiler (repeatable)")
			flagSet.StringVar(&configPath, "config", "", "YAML configuration file supplying extra compiler names")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if events == "" {
				return cli.Validation("--events is required")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return cli.Validation("loading configuration: %w", err)
			}

			info, err := os.Stat(events)
			if err != nil {
				return cli.Internal("%w", err)
			}
			format, err := eventlog.FormatForPath(events)
			if err != nil {
				return cli.Validation("%w", err)
			}
			records, err := eventlog.Read(events)
			if err != nil {
				return cli.Internal("%w", err)
			}

			result := summarize(records, compiler.NewRecognizer(append(cfg.Intercept.Compilers, compilers...)...))
			result.Path = events
			result.Format = format.String()
			result.Size = info.Size()

			if jsonOutput {
				encoder := json.NewEncoder(streams.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			result.render(streams.Stdout)
			return nil
		},
	}
}

// summarize groups records by program name. Rows are ordered by
// invocation count, busiest first.
func summarize(records []record.Record, recognizer *compiler.Recognizer) summary {
	rows := make(map[string]*programSummary)
	sources := make(map[string]map[string]bool)
	var result summary

	for _, r := range records {
		result.Invocations++
		if result.First.IsZero() || r.Captured.Before(result.First) {
			result.First = r.Captured
		}
		if r.Captured.After(result.Last) {
			result.Last = r.Captured
		}

		program := r.Program()
		row, ok := rows[program]
		if !ok {
			row = &programSummary{Program: program, Compiler: recognizer.IsCompiler(program)}
			rows[program] = row
			sources[program] = make(map[string]bool)
		}
		row.Invocations++

		entries, err := compilation.FromRecord(r, recognizer)
		if err != nil || len(entries) == 0 {
			continue
		}
		row.Compilations++
		for _, entry := range entries {
			sources[program][entry.File] = true
		}
	}

	for program, row := range rows {
		row.Sources = len(sources[program])
		result.Programs = append(result.Programs, *row)
	}
	slices.SortFunc(result.Programs, func(a, b programSummary) int {
		if c := cmp.Compare(b.Invocations, a.Invocations); c != 0 {
			return c
		}
		return strings.Compare(a.Program, b.Program)
	})
	return result
}

// render writes the summary as a table. Styling follows the terminal
// capabilities of w; redirected output is plain text.
func (s summary) render(w io.Writer) {
	renderer := lipgloss.NewRenderer(w)
	title := renderer.NewStyle().Bold(true)
	dim := renderer.NewStyle().Faint(true)
	header := renderer.NewStyle().Bold(true).Underline(true)

	fmt.Fprintln(w, title.Render("Event log")+" "+s.Path)
	fmt.Fprintf(w, "  %s, %s\n", s.Format, humanize.Bytes(uint64(s.Size)))
	fmt.Fprintf(w, "  %s invocations", humanize.Comma(int64(s.Invocations)))
	if !s.First.IsZero() {
		fmt.Fprintf(w, " over %s", s.Last.Sub(s.First).Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	if len(s.Programs) == 0 {
		return
	}
	fmt.Fprintln(w)

	columns := []string{"PROGRAM", "INVOCATIONS", "COMPILATIONS", "SOURCES"}
	cells := make([][]string, 0, len(s.Programs))
	for _, row := range s.Programs {
		cells = append(cells, []string{
			row.Program,
			humanize.Comma(int64(row.Invocations)),
			humanize.Comma(int64(row.Compilations)),
			humanize.Comma(int64(row.Sources)),
		})
	}

	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = lipgloss.Width(column)
	}
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cellStyle := func(style lipgloss.Style, i int) lipgloss.Style {
		style = style.Width(widths[i]).MarginRight(2)
		if i > 0 {
			style = style.Align(lipgloss.Right)
		}
		return style
	}

	var line []string
	for i, column := range columns {
		line = append(line, cellStyle(header, i).Render(column))
	}
	fmt.Fprintln(w, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, line...), " "))

	for index, row := range cells {
		line = line[:0]
		style := renderer.NewStyle()
		if !s.Programs[index].Compiler {
			style = dim
		}
		for i, cell := range row {
			line = append(line, cellStyle(style, i).Render(cell))
		}
		fmt.Fprintln(w, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, line...), " "))
	}
}
