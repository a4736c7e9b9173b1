// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/compiledb/lib/channel"
	"github.com/bureau-foundation/compiledb/lib/clock"
	"github.com/bureau-foundation/compiledb/lib/environ"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Name is the shim executable's own name. Invoked under this name, the
// shim takes the program to run from its first argument instead of
// argv[0] ("compiledb-shim gcc -c a.c").
const Name = "compiledb-shim"

// Exit statuses the shim uses for failures the build would also have
// seen without interception, following the shell's conventions.
const (
	ExitNotFound      = 127
	ExitNotExecutable = 126
)

// ErrNotFound is returned by Resolve when no real program matches.
var ErrNotFound = errors.New("command not found")

// Reporter delivers a captured record. *channel.Client implements it.
type Reporter interface {
	Report(ctx context.Context, r record.Record) error
}

// ExecFunc replaces the current process image. unix.Exec in
// production; tests inject a recorder. It only returns on failure.
type ExecFunc func(path string, argv []string, env []string) error

// Config holds configuration for creating an Interceptor. Zero fields
// take production defaults.
type Config struct {
	// State is the interception configuration. Default: Current().
	State *State

	// Environment is the process environment passed to the real
	// program unchanged. Default: os.Environ().
	Environment []string

	// Reporter delivers records. Default: a channel.Client for
	// State.SocketPath.
	Reporter Reporter

	// Exec replaces the process image. Default: unix.Exec.
	Exec ExecFunc

	// Self is the resolved path of the shim binary, used to skip
	// candidates that would exec the shim again. Default: the
	// symlink-resolved os.Executable().
	Self string

	// Getwd returns the working directory. Default: os.Getwd.
	Getwd func() (string, error)

	// PID and ParentPID identify the process. Default: os.Getpid and
	// unix.Getppid.
	PID       int
	ParentPID int

	// Clock stamps records. Default: clock.Real().
	Clock clock.Clock

	// Stderr receives the shim's own error messages and, when
	// State.Verbose is set, its diagnostics. Default: os.Stderr.
	Stderr io.Writer
}

// Interceptor performs capture-then-delegate for one process.
type Interceptor struct {
	state       State
	environment []string
	reporter    Reporter
	exec        ExecFunc
	self        string
	getwd       func() (string, error)
	pid         int
	parentPID   int
	clock       clock.Clock
	stderr      io.Writer
	logger      *slog.Logger
}

// New returns an Interceptor with config's defaults filled in.
func New(config Config) *Interceptor {
	state := config.State
	if state == nil {
		current := Current()
		state = &current
	}

	environment := config.Environment
	if environment == nil {
		environment = os.Environ()
	}

	reporter := config.Reporter
	if reporter == nil {
		reporter = channel.NewClient(state.SocketPath, state.ReportTimeout)
	}

	execFunction := config.Exec
	if execFunction == nil {
		execFunction = unix.Exec
	}

	self := config.Self
	if self == "" {
		if executable, err := os.Executable(); err == nil {
			self = executable
		}
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}

	getwd := config.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}

	pid := config.PID
	if pid == 0 {
		pid = os.Getpid()
	}
	parentPID := config.ParentPID
	if parentPID == 0 {
		parentPID = unix.Getppid()
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	stderr := config.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var handler slog.Handler = slog.DiscardHandler
	if state.Verbose {
		handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &Interceptor{
		state:       *state,
		environment: environment,
		reporter:    reporter,
		exec:        execFunction,
		self:        self,
		getwd:       getwd,
		pid:         pid,
		parentPID:   parentPID,
		clock:       clk,
		stderr:      stderr,
		logger:      slog.New(handler).With("component", Name, "pid", pid),
	}
}

// Run intercepts the invocation described by argv (os.Args form). On
// success it does not return: the process becomes the real program.
// The returned value is the exit status to use when delegation failed.
func (i *Interceptor) Run(ctx context.Context, argv []string) int {
	if len(argv) > 0 && filepath.Base(argv[0]) == Name {
		argv = argv[1:]
	}
	if len(argv) == 0 || argv[0] == "" {
		fmt.Fprintf(i.stderr, "%s: no program to run\n", Name)
		return ExitNotFound
	}

	// A launcher we delegated to (ccache's masquerade directory, a
	// wrapper script named cc) that execs or spawns the next cc on PATH
	// lands back here. That invocation was already reported; resolve
	// past the programs the chain has been through.
	var delegated []string
	chain := environ.ParseChain(chainValue(i.environment))
	reentered := chain.PID != 0 && (chain.PID == i.pid || chain.PID == i.parentPID)
	if reentered {
		delegated = chain.Delegated
	}

	executable, err := i.resolve(argv[0], delegated)
	if err != nil {
		fmt.Fprintf(i.stderr, "%s: %s: %v\n", Name, argv[0], err)
		if errors.Is(err, ErrNotFound) {
			return ExitNotFound
		}
		return ExitNotExecutable
	}

	// Capture strictly before delegating: once exec succeeds there is
	// no code left to report anything.
	if reentered {
		i.logger.Debug("re-entered through launcher, not reporting again",
			"executable", executable, "chain", chain.Delegated)
	} else {
		i.capture(ctx, executable, argv)
	}

	delegatedArgv := make([]string, len(argv))
	copy(delegatedArgv, argv)
	delegatedArgv[0] = executable

	environment := environ.Set(i.environment, environ.ShimChain, environ.FormatChain(environ.Chain{
		PID:       i.pid,
		Delegated: append(slices.Clone(delegated), executable),
	}))
	err = i.exec(executable, delegatedArgv, environment)

	// Reaching here means exec failed and the process was not replaced.
	fmt.Fprintf(i.stderr, "%s: %s: %v\n", Name, executable, err)
	if errors.Is(err, unix.ENOENT) {
		return ExitNotFound
	}
	return ExitNotExecutable
}

// capture builds and reports the record, swallowing every failure.
func (i *Interceptor) capture(ctx context.Context, executable string, argv []string) {
	if !i.state.Enabled() {
		i.logger.Debug("capture disabled: report channel not configured")
		return
	}

	r, err := i.Capture(executable, argv)
	if err != nil {
		i.logger.Warn("skipping capture", "error", err)
		return
	}

	if err := i.reporter.Report(ctx, r); err != nil {
		i.logger.Warn("report not delivered", "error", err, "executable", executable)
		return
	}
	i.logger.Debug("reported invocation", "executable", executable, "fingerprint", r.Fingerprint().Short())
}

// Capture builds the record for executing executable with argv.
func (i *Interceptor) Capture(executable string, argv []string) (record.Record, error) {
	directory, err := i.getwd()
	if err != nil {
		return record.Record{}, fmt.Errorf("reading working directory: %w", err)
	}

	arguments := make([]string, len(argv))
	copy(arguments, argv)

	r := record.Record{
		Executable:  executable,
		Arguments:   arguments,
		Directory:   directory,
		Environment: environ.Capture(i.environment, i.state.CaptureKeys),
		PID:         i.pid,
		ParentPID:   i.parentPID,
		Captured:    i.clock.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return record.Record{}, err
	}
	return r, nil
}

// Resolve returns the absolute path of the real program for name.
//
// A name containing a slash outside the shim directory is taken
// literally. A bare name, a path into the shim directory, or any other
// link to the shim is looked up by its base name: first in the override
// table, then in PATH with the shim directory removed. Candidates that
// are the shim itself are skipped.
func (i *Interceptor) Resolve(name string) (string, error) {
	return i.resolve(name, nil)
}

// resolve is Resolve that also skips every candidate that is one of
// delegated, the programs this exec chain already ran.
func (i *Interceptor) resolve(name string, delegated []string) (string, error) {
	if strings.Contains(name, "/") {
		absolute, err := filepath.Abs(name)
		if err != nil {
			return "", err
		}
		if !i.inShimDirectory(absolute) && !i.isSelf(absolute) {
			if err := checkExecutable(absolute); err != nil {
				return "", err
			}
			return absolute, nil
		}
		name = filepath.Base(absolute)
	}

	skip := func(candidate string) bool {
		return i.isSelf(candidate) || isOneOf(candidate, delegated)
	}

	if override, ok := i.state.Overrides[name]; ok && !skip(override) {
		if err := checkExecutable(override); err == nil {
			return filepath.Abs(override)
		}
		i.logger.Debug("override not executable, searching PATH", "name", name, "override", override)
	}

	pathValue, _ := environ.Get(i.environment, "PATH")
	for _, directory := range environ.SearchPath(pathValue, i.state.ShimDirectory) {
		candidate := filepath.Join(directory, name)
		if checkExecutable(candidate) != nil || skip(candidate) {
			continue
		}
		return filepath.Abs(candidate)
	}
	return "", ErrNotFound
}

// isOneOf reports whether path names the same file as any of paths,
// either literally or after resolving symlinks.
func isOneOf(path string, paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	resolved, resolveErr := filepath.EvalSymlinks(absolute)
	for _, other := range paths {
		if other == absolute {
			return true
		}
		if resolveErr != nil {
			continue
		}
		if otherResolved, err := filepath.EvalSymlinks(other); err == nil && otherResolved == resolved {
			return true
		}
	}
	return false
}

func chainValue(env []string) string {
	value, _ := environ.Get(env, environ.ShimChain)
	return value
}

func (i *Interceptor) inShimDirectory(path string) bool {
	if i.state.ShimDirectory == "" {
		return false
	}
	return filepath.Clean(filepath.Dir(path)) == filepath.Clean(i.state.ShimDirectory)
}

func (i *Interceptor) isSelf(path string) bool {
	if i.self == "" {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return resolved == i.self
}

// checkExecutable reports whether path is an executable regular file.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// Main is the compiledb-shim entrypoint. It returns only when the real
// program could not be executed.
func Main() int {
	return New(Config{}).Run(context.Background(), os.Args)
}
