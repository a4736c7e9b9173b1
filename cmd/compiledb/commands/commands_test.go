// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/config"
	"github.com/bureau-foundation/compiledb/lib/eventlog"
	"github.com/bureau-foundation/compiledb/lib/record"
	"github.com/bureau-foundation/compiledb/lib/testutil"
)

// testStreams captures command output.
type testStreams struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	level  slog.LevelVar
}

func (s *testStreams) streams() Streams {
	return Streams{
		Stdin:  strings.NewReader(""),
		Stdout: &s.stdout,
		Stderr: &s.stderr,
		Level:  &s.level,
	}
}

func execute(t *testing.T, streams *testStreams, args ...string) error {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Root(streams.streams()).Execute(context.Background(), args, logger)
}

// buildSandbox puts a fake cc first on PATH and makes a scratch
// directory the working directory. Sockets go under a short TMPDIR.
func buildSandbox(t *testing.T) (workDirectory string) {
	t.Helper()
	binDirectory := t.TempDir()
	testutil.Script(t, binDirectory, "cc", `for argument; do :; done
: > "$argument"`)
	t.Setenv("PATH", binDirectory+":/usr/bin:/bin")
	t.Setenv("TMPDIR", testutil.SocketDir(t))
	t.Setenv(config.EnvironmentVariable, "")

	workDirectory = t.TempDir()
	t.Chdir(workDirectory)
	return workDirectory
}

func testShim(t *testing.T) string {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	return self
}

func TestRunMirrorsBuildExitCode(t *testing.T) {
	workDirectory := buildSandbox(t)
	var streams testStreams

	err := execute(t, &streams,
		"--shim", testShim(t),
		"-o", "db.json",
		"--", "/bin/sh", "-c", "cc -c main.c -o main.o; exit 4")

	var exitError *cli.ExitError
	if !errors.As(err, &exitError) || exitError.Code != 4 {
		t.Fatalf("Execute error = %v, want exit code 4", err)
	}

	entries, err := compilation.Load(filepath.Join(workDirectory, "db.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].File != filepath.Join(workDirectory, "main.c") {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRunSubcommandWithCommandString(t *testing.T) {
	workDirectory := buildSandbox(t)
	var streams testStreams

	err := execute(t, &streams,
		"run", "--shim", testShim(t), "--command-string",
		"--events", "build.json",
		"cc", "-c", "lib.c", "-o", "lib.o")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(workDirectory, "compile_commands.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"command":`) {
		t.Errorf("database has no command strings:\n%s", data)
	}

	records, err := eventlog.Read(filepath.Join(workDirectory, "build.json"))
	if err != nil {
		t.Fatalf("eventlog.Read: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("event log has %d records, want 1", len(records))
	}
}

func TestRunCommandNotFound(t *testing.T) {
	buildSandbox(t)
	var streams testStreams

	err := execute(t, &streams, "--shim", testShim(t), "--", "no-such-build-tool")

	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.ExitCode() != cli.ExitNotFound {
		t.Errorf("Execute error = %v, want not-found (127)", err)
	}
}

func TestRunRequiresBuildCommand(t *testing.T) {
	buildSandbox(t)
	var streams testStreams

	err := execute(t, &streams, "--shim", testShim(t))

	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryValidation {
		t.Errorf("Execute error = %v, want validation error", err)
	}
}

func TestRunRejectsInvalidMode(t *testing.T) {
	buildSandbox(t)
	var streams testStreams

	err := execute(t, &streams, "--mode", "ptrace", "--", "true")
	if err == nil || !strings.Contains(err.Error(), "intercept.mode") {
		t.Errorf("Execute error = %v, want mode validation failure", err)
	}
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	var flags runFlags
	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.register(flagSet)
	if err := flagSet.Parse([]string{"--append", "--events", "e.cbor"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Path = "from-config.json"
	cfg.Intercept.Mode = config.ModePreload
	flags.apply(flagSet, cfg)

	if cfg.Output.Path != "from-config.json" {
		t.Errorf("unset --output replaced the configured path: %q", cfg.Output.Path)
	}
	if cfg.Intercept.Mode != config.ModePreload {
		t.Errorf("unset --mode replaced the configured mode: %q", cfg.Intercept.Mode)
	}
	if !cfg.Output.Append || cfg.Output.Events != "e.cbor" {
		t.Errorf("flags not applied: %+v", cfg.Output)
	}
}

func TestLocateShim(t *testing.T) {
	installDirectory := t.TempDir()
	self := testutil.Script(t, installDirectory, "compiledb", "exit 0")
	pathDirectory := t.TempDir()
	onPath := testutil.Script(t, pathDirectory, "compiledb-shim", "exit 0")

	if got, err := locateShim(self, pathDirectory); err != nil || got != onPath {
		t.Errorf("locateShim() = %q, %v; want PATH entry %q", got, err, onPath)
	}

	beside := testutil.Script(t, installDirectory, "compiledb-shim", "exit 0")
	if got, err := locateShim(self, pathDirectory); err != nil || got != beside {
		t.Errorf("locateShim() = %q, %v; want sibling %q", got, err, beside)
	}

	if _, err := locateShim("", t.TempDir()); err == nil {
		t.Error("expected error when no shim exists")
	}
}

// writeEventLog writes a small recorded build: two gcc compilations of
// the same file, one link, and one make invocation.
func writeEventLog(t *testing.T, path string) {
	t.Helper()
	captured := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []record.Record{
		{
			Executable: "/usr/bin/gcc", Arguments: []string{"gcc", "-c", "a.c", "-o", "a.o"},
			Directory: "/src", PID: 10, ParentPID: 1, Captured: captured,
		},
		{
			Executable: "/usr/bin/gcc", Arguments: []string{"gcc", "-c", "a.c", "-o", "a.pic.o", "-fPIC"},
			Directory: "/src", PID: 11, ParentPID: 1, Captured: captured.Add(time.Second),
		},
		{
			Executable: "/usr/bin/gcc", Arguments: []string{"gcc", "a.o", "-o", "app"},
			Directory: "/src", PID: 12, ParentPID: 1, Captured: captured.Add(2 * time.Second),
		},
		{
			Executable: "/usr/bin/make", Arguments: []string{"make"},
			Directory: "/src", PID: 1, ParentPID: 0, Captured: captured.Add(-time.Second),
		},
	}
	if err := eventlog.Write(path, records); err != nil {
		t.Fatalf("eventlog.Write: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	directory := t.TempDir()
	t.Setenv(config.EnvironmentVariable, "")
	events := filepath.Join(directory, "build.cbor.zst")
	output := filepath.Join(directory, "compile_commands.json")
	writeEventLog(t, events)

	var streams testStreams
	if err := execute(t, &streams, "generate", "--events", events, "-o", output); err != nil {
		t.Fatalf("generate: %v", err)
	}

	entries, err := compilation.Load(output)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (link and make skipped)", len(entries))
	}
	for _, entry := range entries {
		if entry.File != "/src/a.c" || entry.Arguments[0] != "/usr/bin/gcc" {
			t.Errorf("entry = %+v", entry)
		}
	}
}

func TestGenerateRequiresEvents(t *testing.T) {
	var streams testStreams
	if err := execute(t, &streams, "generate"); err == nil {
		t.Error("expected error without --events")
	}
}

func TestGenerateMissingEventLog(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	var streams testStreams
	err := execute(t, &streams, "generate", "--events", filepath.Join(t.TempDir(), "absent.cbor"))

	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryInternal {
		t.Fatalf("Execute error = %v, want internal error", err)
	}
	if categorized.ExitCode() != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", categorized.ExitCode(), cli.ExitFailure)
	}
}

func TestReport(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	events := filepath.Join(t.TempDir(), "build.cbor")
	writeEventLog(t, events)

	var streams testStreams
	if err := execute(t, &streams, "report", "--events", events); err != nil {
		t.Fatalf("report: %v", err)
	}

	output := streams.stdout.String()
	for _, want := range []string{"build.cbor", "4 invocations", "over 3s", "PROGRAM", "gcc", "make"} {
		if !strings.Contains(output, want) {
			t.Errorf("report missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "gcc") > strings.Index(output, "make ") {
		t.Errorf("busiest program not listed first:\n%s", output)
	}
}

func TestReportJSON(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	events := filepath.Join(t.TempDir(), "build.json")
	writeEventLog(t, events)

	var streams testStreams
	if err := execute(t, &streams, "report", "--events", events, "--json"); err != nil {
		t.Fatalf("report: %v", err)
	}

	var result summary
	if err := json.Unmarshal(streams.stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, streams.stdout.String())
	}
	if result.Invocations != 4 || result.Format != "json" {
		t.Errorf("summary = %+v", result)
	}
	want := []programSummary{
		{Program: "gcc", Compiler: true, Invocations: 3, Compilations: 2, Sources: 1},
		{Program: "make", Compiler: false, Invocations: 1},
	}
	if len(result.Programs) != len(want) {
		t.Fatalf("programs = %+v, want %+v", result.Programs, want)
	}
	for i := range want {
		if result.Programs[i] != want[i] {
			t.Errorf("programs[%d] = %+v, want %+v", i, result.Programs[i], want[i])
		}
	}
}

func TestReportUsesConfiguredCompilers(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	directory := t.TempDir()
	events := filepath.Join(directory, "build.cbor")
	writeEventLog(t, events)
	configPath := filepath.Join(directory, "compiledb.yaml")
	if err := os.WriteFile(configPath, []byte("intercept:\n  compilers: [make]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var streams testStreams
	if err := execute(t, &streams, "report", "--events", events, "--json", "--config", configPath); err != nil {
		t.Fatalf("report: %v", err)
	}

	var result summary
	if err := json.Unmarshal(streams.stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, streams.stdout.String())
	}
	for _, program := range result.Programs {
		if program.Program == "make" && !program.Compiler {
			t.Errorf("make not classified as a compiler with intercept.compilers: %+v", program)
		}
	}
}

func TestVersion(t *testing.T) {
	var streams testStreams
	if err := execute(t, &streams, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(streams.stdout.String(), "compiledb ") {
		t.Errorf("version output = %q", streams.stdout.String())
	}
}

func TestVersionShort(t *testing.T) {
	var streams testStreams
	if err := execute(t, &streams, "version", "--short"); err != nil {
		t.Fatalf("version --short: %v", err)
	}
	output := streams.stdout.String()
	if strings.HasPrefix(output, "compiledb ") || strings.Contains(output, "Go:") {
		t.Errorf("short version output = %q", output)
	}
	if strings.Count(output, "\n") != 1 {
		t.Errorf("short version output spans lines: %q", output)
	}
}
