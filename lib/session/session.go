// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/compiledb/lib/channel"
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/eventlog"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Mode selects how compiler executions are intercepted.
type Mode string

const (
	// ModeWrapper routes compiler names through links to the shim
	// executable placed first in PATH.
	ModeWrapper Mode = "wrapper"

	// ModePreload injects an interception library through the
	// platform's preload variable.
	ModePreload Mode = "preload"
)

// DefaultDrainTimeout bounds the wait for in-flight reports after the
// build exits.
const DefaultDrainTimeout = 5 * time.Second

// DefaultReportTimeout bounds each shim's wait for acknowledgement.
const DefaultReportTimeout = 5 * time.Second

// forwardedSignals are relayed from the wrapper to the build's
// process group.
var forwardedSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

// Config holds configuration for creating a Session.
type Config struct {
	// Command is the build command and its arguments. Required.
	Command []string

	// Mode is the interception mode. Default: ModeWrapper.
	Mode Mode

	// ShimPath is the compiledb-shim executable. Required in wrapper
	// mode.
	ShimPath string

	// Library is the interception library. Required in preload mode.
	// A literal $LIB is passed through for the dynamic loader.
	Library string

	// Compilers are extra program names to intercept and recognize as
	// compilers.
	Compilers []string

	// EnvironmentKeys are extra environment variables the shim
	// records.
	EnvironmentKeys []string

	// ReportTimeout bounds each shim's delivery. Default:
	// DefaultReportTimeout.
	ReportTimeout time.Duration

	// DrainTimeout bounds the wait for in-flight reports after the
	// build exits. Default: DefaultDrainTimeout.
	DrainTimeout time.Duration

	// Output is the compilation database path. Empty skips writing
	// the database; records and entries are still returned.
	Output string

	// Append merges into an existing database instead of replacing it.
	Append bool

	// Format selects how entries are written.
	Format compilation.Format

	// EventLog, when set, archives the raw records there.
	EventLog string

	// Environment is the base environment of the build. Default:
	// os.Environ().
	Environment []string

	// Directory is the build's working directory. Default: the
	// wrapper's.
	Directory string

	// Stdin, Stdout, and Stderr are the build's standard streams.
	// Default: the wrapper's.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Verbose turns on shim diagnostics.
	Verbose bool

	// TempDirectory is where the session's private directory is
	// created. Default: os.TempDir().
	TempDirectory string

	// OnTransition, if set, is called synchronously on each state
	// change.
	OnTransition func(from, to State)

	// Logger receives session progress. Default: slog.Default().
	Logger *slog.Logger
}

// Session supervises one build command.
type Session struct {
	id              string
	command         []string
	mode            Mode
	shimPath        string
	library         string
	compilers       []string
	environmentKeys []string
	reportTimeout   time.Duration
	drainTimeout    time.Duration
	output          string
	append          bool
	format          compilation.Format
	eventLog        string
	environment     []string
	directory       string
	stdin           io.Reader
	stdout          io.Writer
	stderr          io.Writer
	verbose         bool
	tempDirectory   string
	goos            string
	onTransition    func(from, to State)
	recognizer      *compiler.Recognizer
	logger          *slog.Logger

	started atomic.Bool
	state   atomic.Int32
}

// New validates config and returns an idle Session.
func New(config Config) (*Session, error) {
	if len(config.Command) == 0 || config.Command[0] == "" {
		return nil, errors.New("session: build command is required")
	}

	mode := config.Mode
	if mode == "" {
		mode = ModeWrapper
	}
	switch mode {
	case ModeWrapper:
		if config.ShimPath == "" {
			return nil, errors.New("session: ShimPath is required in wrapper mode")
		}
	case ModePreload:
		if config.Library == "" {
			return nil, errors.New("session: Library is required in preload mode")
		}
	default:
		return nil, fmt.Errorf("session: unknown mode %q", mode)
	}

	directory := config.Directory
	if directory == "" {
		var err error
		if directory, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("session: reading working directory: %w", err)
		}
	}

	shimPath := config.ShimPath
	if shimPath != "" && !filepath.IsAbs(shimPath) {
		shimPath = filepath.Join(directory, shimPath)
	}
	library := config.Library
	if library != "" && !filepath.IsAbs(library) {
		library = filepath.Join(directory, library)
	}
	output := config.Output
	if output != "" && !filepath.IsAbs(output) {
		output = filepath.Join(directory, output)
	}
	eventLog := config.EventLog
	if eventLog != "" && !filepath.IsAbs(eventLog) {
		eventLog = filepath.Join(directory, eventLog)
	}

	reportTimeout := config.ReportTimeout
	if reportTimeout <= 0 {
		reportTimeout = DefaultReportTimeout
	}
	drainTimeout := config.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}

	environment := config.Environment
	if environment == nil {
		environment = os.Environ()
	}

	stdin, stdout, stderr := config.Stdin, config.Stdout, config.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	tempDirectory := config.TempDirectory
	if tempDirectory == "" {
		tempDirectory = os.TempDir()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		id:              id,
		command:         config.Command,
		mode:            mode,
		shimPath:        shimPath,
		library:         library,
		compilers:       config.Compilers,
		environmentKeys: config.EnvironmentKeys,
		reportTimeout:   reportTimeout,
		drainTimeout:    drainTimeout,
		output:          output,
		append:          config.Append,
		format:          config.Format,
		eventLog:        eventLog,
		environment:     environment,
		directory:       directory,
		stdin:           stdin,
		stdout:          stdout,
		stderr:          stderr,
		verbose:         config.Verbose,
		tempDirectory:   tempDirectory,
		goos:            runtime.GOOS,
		onTransition:    config.OnTransition,
		recognizer:      compiler.NewRecognizer(config.Compilers...),
		logger:          logger.With("session", id[:8]),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	s.logger.Debug("session state", "from", from, "to", to)
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}

// Run executes the session. A Session runs once.
//
// The returned error reports setup failures (collector, shim
// directory, build command not found or not startable); no build ran
// and the Result is zero. Wrap checks with errors.Is(err,
// exec.ErrNotFound) for a missing command. Once the build has started,
// Run returns a nil error and reports everything else in the Result.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Result{}, errors.New("session: already run")
	}

	privateDirectory, err := os.MkdirTemp(s.tempDirectory, "compiledb-"+s.id[:8]+"-")
	if err != nil {
		return Result{}, fmt.Errorf("creating session directory: %w", err)
	}
	defer os.RemoveAll(privateDirectory)

	records := record.NewSet()
	collector, err := channel.NewCollector(channel.CollectorConfig{
		SocketPath: filepath.Join(privateDirectory, "report.sock"),
		Sink:       func(r record.Record) { records.Add(r) },
		Logger:     s.logger,
	})
	if err != nil {
		return Result{}, err
	}
	if err := collector.Listen(); err != nil {
		return Result{}, fmt.Errorf("opening report channel: %w", err)
	}
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if err := collector.Serve(); err != nil {
			s.logger.Error("report channel failed", "error", err)
		}
	}()
	stopCollector := func(timeout time.Duration) {
		shutdownContext, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := collector.Shutdown(shutdownContext); err != nil {
			s.logger.Warn("reports still in flight at drain deadline", "error", err)
		}
		<-serveDone
	}

	shimDirectory := ""
	if s.mode == ModeWrapper {
		shimDirectory = filepath.Join(privateDirectory, "bin")
	}
	env, overrides := s.childEnvironment(collector.SocketPath(), shimDirectory)
	if s.mode == ModeWrapper {
		names := linkNames(s.compilers, overrides, s.environment, s.recognizer)
		if err := createShimDirectory(shimDirectory, s.shimPath, names); err != nil {
			stopCollector(0)
			return Result{}, fmt.Errorf("creating shim directory: %w", err)
		}
	}

	cmd, err := s.buildCommand(ctx, env)
	if err != nil {
		stopCollector(0)
		return Result{}, err
	}

	s.logger.Info("starting build",
		"command", s.command,
		"mode", string(s.mode),
		"directory", s.directory,
	)
	// Signals are caught before Start so an interrupt arriving while
	// the build starts reaches its process group instead of killing
	// only the wrapper.
	startForwarding, stopForwarding := forwardSignals(s.logger)
	if err := cmd.Start(); err != nil {
		stopForwarding()
		stopCollector(0)
		return Result{}, fmt.Errorf("starting %s: %w", s.command[0], err)
	}
	s.transition(ChildSpawned)

	startForwarding(cmd.Process.Pid)
	waitErr := cmd.Wait()
	stopForwarding()

	exitCode := exitStatus(cmd, waitErr)
	s.logger.Info("build finished", "exit_code", exitCode)

	// Background jobs of the build may still compile after the direct
	// child exits. Keep accepting until the process group is empty.
	s.transition(Draining)
	drainDeadline := time.Now().Add(s.drainTimeout)
	if !waitForGroup(ctx, cmd.Process.Pid, drainDeadline) && ctx.Err() == nil {
		s.logger.Warn("build processes still running at drain timeout, later compilations are not recorded",
			"drain_timeout", s.drainTimeout,
		)
	}
	stopCollector(time.Until(drainDeadline))

	s.transition(Finalizing)
	result := s.finalize(records)
	if s.mode == ModeWrapper && len(result.Records) == 0 {
		s.logger.Warn("no compiler invocations captured; compilers run by absolute path bypass wrapper mode, try --mode preload")
	}
	result.ExitCode = exitCode
	result.Dropped = collector.Dropped()

	s.transition(Done)
	return result, nil
}

// buildCommand builds the exec.Cmd for the build in its own process group.
// Cancellation kills the whole group, not only the direct child.
func (s *Session) buildCommand(ctx context.Context, env []string) (*exec.Cmd, error) {
	path, err := lookPath(s.command[0], env, s.directory)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, s.command[1:]...)
	cmd.Args[0] = s.command[0]
	cmd.Env = env
	cmd.Dir = s.directory
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = s.drainTimeout
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	return cmd, nil
}

// forwardSignals catches termination signals until stop is called.
// Once start is given the build's pid, caught signals, including any
// that arrived before, are relayed to its process group.
func forwardSignals(logger *slog.Logger) (start func(pid int), stop func()) {
	signals := make(chan os.Signal, 8)
	signal.Notify(signals, forwardedSignals...)
	pids := make(chan int, 1)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		var pid int
		select {
		case pid = <-pids:
		case <-done:
			return
		}
		for {
			select {
			case received := <-signals:
				signalNumber, ok := received.(syscall.Signal)
				if !ok {
					continue
				}
				logger.Debug("forwarding signal to build", "signal", received.String())
				if err := unix.Kill(-pid, signalNumber); err != nil && !errors.Is(err, unix.ESRCH) {
					logger.Warn("forwarding signal failed", "signal", received.String(), "error", err)
				}
			case <-done:
				return
			}
		}
	}()

	start = func(pid int) { pids <- pid }
	stop = func() {
		signal.Stop(signals)
		close(done)
		<-finished
	}
	return start, stop
}

// groupPollInterval is how often draining checks whether the build's
// process group still has members.
const groupPollInterval = 20 * time.Millisecond

// waitForGroup waits until the process group pgid is empty. It returns
// false if ctx ends or deadline passes first.
func waitForGroup(ctx context.Context, pgid int, deadline time.Time) bool {
	ticker := time.NewTicker(groupPollInterval)
	defer ticker.Stop()
	for {
		if !groupAlive(pgid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// groupAlive reports whether any process remains in group pgid.
// EPERM means members exist that we may not signal.
func groupAlive(pgid int) bool {
	err := unix.Kill(-pgid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// exitStatus maps the build's termination to a shell-style status.
func exitStatus(cmd *exec.Cmd, waitErr error) int {
	state := cmd.ProcessState
	if state == nil {
		return 1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if waitErr != nil {
		return 1
	}
	return 0
}

// finalize deduplicates, converts, and writes outputs. Output failures
// are collected in Result.Err.
func (s *Session) finalize(set *record.Set) Result {
	result := Result{
		Records:    set.Records(),
		Duplicates: set.Duplicates(),
	}
	result.Entries = compilation.FromRecords(result.Records, s.recognizer)

	var errs []error
	if s.eventLog != "" {
		if err := eventlog.Write(s.eventLog, result.Records); err != nil {
			errs = append(errs, fmt.Errorf("writing event log: %w", err))
		} else {
			s.logger.Info("event log written", "path", s.eventLog, "records", len(result.Records))
		}
	}

	if s.output != "" {
		var err error
		if s.append {
			result.DatabaseEntries, err = compilation.Append(s.output, result.Entries, s.format)
		} else {
			err = compilation.Save(s.output, result.Entries, s.format)
			if err == nil {
				result.DatabaseEntries = len(result.Entries)
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("writing compilation database: %w", err))
		} else {
			s.logger.Info("compilation database written",
				"path", s.output,
				"entries", result.DatabaseEntries,
				"records", len(result.Records),
				"duplicates", result.Duplicates,
			)
		}
	}

	result.Err = errors.Join(errs...)
	if result.Err != nil {
		s.logger.Error("finalizing session", "error", result.Err)
	}
	return result
}
