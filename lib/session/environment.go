// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"

	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/environ"
)

// compilerVariables are the variables builds use to choose compilers.
var compilerVariables = []string{"CC", "CXX"}

// shimVariables are every variable the shim reads. Inherited values
// from an enclosing session are removed before this session's are set.
var shimVariables = []string{
	environ.ReportSocket,
	environ.ShimDirectory,
	environ.Overrides,
	environ.CaptureKeys,
	environ.ReportTimeout,
	environ.Verbose,
	environ.ShimChain,
}

// childEnvironment returns the build command's environment and, in
// wrapper mode, the override table passed to the shim.
func (s *Session) childEnvironment(socketPath, shimDirectory string) ([]string, map[string]string) {
	env := s.environment
	for _, key := range shimVariables {
		env = environ.Unset(env, key)
	}

	env = environ.Set(env, environ.ReportSocket, socketPath)
	env = environ.Set(env, environ.ReportTimeout, s.reportTimeout.String())
	if len(s.environmentKeys) > 0 {
		env = environ.Set(env, environ.CaptureKeys, strings.Join(s.environmentKeys, ","))
	}
	if s.verbose {
		env = environ.Set(env, environ.Verbose, "1")
	}

	var overrides map[string]string
	switch s.mode {
	case ModeWrapper:
		env, overrides = redirectCompilers(env, shimDirectory, s.directory, s.recognizer)
		if len(overrides) > 0 {
			env = environ.Set(env, environ.Overrides, environ.FormatOverrides(overrides))
		}
		env = environ.Set(env, environ.ShimDirectory, shimDirectory)
		env = environ.PrependPath(env, shimDirectory)
	case ModePreload:
		env = environ.AddPreload(env, s.goos, s.library)
	}
	return env, overrides
}

// redirectCompilers points CC and CXX at links in shimDirectory. A
// variable naming a compiler by path also gets an override entry so
// the shim runs that exact program. Variables that are unset, or whose
// program is not a compiler (CC="ccache gcc"), are left alone: the
// compiler they eventually run is found through PATH and intercepted
// there.
func redirectCompilers(env []string, shimDirectory, workingDirectory string, recognizer *compiler.Recognizer) ([]string, map[string]string) {
	overrides := make(map[string]string)
	for _, variable := range compilerVariables {
		value, ok := environ.Get(env, variable)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		fields, err := shlex.Split(value)
		if err != nil || len(fields) == 0 {
			continue
		}

		program := fields[0]
		name := filepath.Base(program)
		if !recognizer.IsCompiler(name) {
			continue
		}
		if strings.Contains(program, "/") {
			if !filepath.IsAbs(program) {
				program = filepath.Join(workingDirectory, program)
			}
			overrides[name] = filepath.Clean(program)
		}

		fields[0] = filepath.Join(shimDirectory, name)
		env = environ.Set(env, variable, shellescape.QuoteCommand(fields))
	}
	return env, overrides
}

// linkNames returns the sorted, unique program names linked to the
// shim: the built-in compiler names, configured extras, and any name
// CC or CXX selected.
func linkNames(extra []string, overrides map[string]string, env []string, recognizer *compiler.Recognizer) []string {
	names := make(map[string]bool)
	for _, name := range compiler.DefaultNames {
		names[name] = true
	}
	for _, name := range extra {
		if name != "" {
			names[filepath.Base(name)] = true
		}
	}
	for name := range overrides {
		names[name] = true
	}
	for _, variable := range compilerVariables {
		value, _ := environ.Get(env, variable)
		if fields, err := shlex.Split(value); err == nil && len(fields) > 0 {
			if name := filepath.Base(fields[0]); recognizer.IsCompiler(name) {
				names[name] = true
			}
		}
	}
	return slices.Sorted(maps.Keys(names))
}

// createShimDirectory makes directory and links each name in it to
// shimPath.
func createShimDirectory(directory, shimPath string, names []string) error {
	if err := os.Mkdir(directory, 0o755); err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Symlink(shimPath, filepath.Join(directory, name)); err != nil {
			return err
		}
	}
	return nil
}

// lookPath resolves a build command's program against the child's
// PATH rather than the wrapper's, so a bare compiler name given as the
// build command itself ("compiledb -- cc -c a.c") resolves to its shim
// link.
func lookPath(name string, env []string, workingDirectory string) (string, error) {
	if strings.Contains(name, "/") {
		if !filepath.IsAbs(name) {
			name = filepath.Join(workingDirectory, name)
		}
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	pathValue, _ := environ.Get(env, "PATH")
	for _, directory := range environ.SearchPath(pathValue) {
		if !filepath.IsAbs(directory) {
			directory = filepath.Join(workingDirectory, directory)
		}
		candidate := filepath.Join(directory, name)
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}
	return "", &os.PathError{Op: "exec", Path: name, Err: exec.ErrNotFound}
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return &os.PathError{Op: "exec", Path: path, Err: os.ErrPermission}
	}
	return nil
}
