// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"path/filepath"
	"strings"
)

// Invocation is the compilation-relevant content of one compiler run.
type Invocation struct {
	// Sources are the source files named on the command line, in
	// order, as written (possibly relative to the working directory).
	Sources []string

	// Output is the value of -o, or empty when the compiler chooses
	// the output name itself.
	Output string

	// CompileOnly is set when -c or -S stops the driver before linking.
	CompileOnly bool

	skip bool
}

// sourceExtensions are the file suffixes compiled by the recognized
// drivers. Matching is case-sensitive: ".S" is preprocessed assembly
// and ".C" is C++ on case-sensitive filesystems.
var sourceExtensions = map[string]bool{
	".c":   true,
	".i":   true,
	".C":   true,
	".cc":  true,
	".cp":  true,
	".cpp": true,
	".cxx": true,
	".c++": true,
	".CPP": true,
	".ii":  true,
	".m":   true,
	".mi":  true,
	".mm":  true,
	".M":   true,
	".mii": true,
	".s":   true,
	".S":   true,
	".sx":  true,
	".cu":  true,
}

// IsSource reports whether path has a recognized source extension.
func IsSource(path string) bool {
	return sourceExtensions[filepath.Ext(path)]
}

// separateValueFlags take their value as the next argument. The value
// is never a source file even when it looks like one ("-include x.h",
// "-MF deps.d", "-Xclang foo.c").
var separateValueFlags = map[string]bool{
	"-o":                 true,
	"-D":                 true,
	"-U":                 true,
	"-I":                 true,
	"-L":                 true,
	"-l":                 true,
	"-x":                 true,
	"-u":                 true,
	"-T":                 true,
	"-z":                 true,
	"-MF":                true,
	"-MT":                true,
	"-MQ":                true,
	"-MJ":                true,
	"-include":           true,
	"-imacros":           true,
	"-isystem":           true,
	"-iquote":            true,
	"-idirafter":         true,
	"-iprefix":           true,
	"-iwithprefix":       true,
	"-iwithprefixbefore": true,
	"-isysroot":          true,
	"-imultilib":         true,
	"-arch":              true,
	"-target":            true,
	"-aux-info":          true,
	"--param":            true,
	"-Xlinker":           true,
	"-Xassembler":        true,
	"-Xpreprocessor":     true,
	"-Xclang":            true,
	"-Xarch_host":        true,
	"-Xarch_device":      true,
	"-Xcuda-ptxas":       true,
	"-Xcuda-fatbinary":   true,
	"-ccbin":             true,
	"-gencode":           true,
}

// skipFlags make the driver stop before compiling anything.
var skipFlags = map[string]bool{
	"-E":               true,
	"-M":               true,
	"-MM":              true,
	"--version":        true,
	"-version":         true,
	"--help":           true,
	"-###":             true,
	"-dumpversion":     true,
	"-dumpfullversion": true,
	"-dumpmachine":     true,
	"-dumpspecs":       true,
}

func parseArguments(arguments []string) Invocation {
	var invocation Invocation
	language := ""

	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]

		switch {
		case skipFlags[argument], strings.HasPrefix(argument, "-print-"), strings.HasPrefix(argument, "--print-"):
			invocation.skip = true

		case argument == "-c", argument == "-S":
			invocation.CompileOnly = true

		case argument == "-o":
			if index+1 < len(arguments) {
				invocation.Output = arguments[index+1]
				index++
			}

		case argument == "-x":
			if index+1 < len(arguments) {
				language = arguments[index+1]
				index++
			}

		case separateValueFlags[argument]:
			index++

		case strings.HasPrefix(argument, "-o") && len(argument) > 2:
			invocation.Output = argument[2:]

		case strings.HasPrefix(argument, "-x") && len(argument) > 2:
			language = argument[2:]

		case argument == "-", strings.HasPrefix(argument, "-"), strings.HasPrefix(argument, "@"):
			// Other flags, stdin input, and response files.

		case language != "" && language != "none":
			invocation.Sources = append(invocation.Sources, argument)

		case IsSource(argument):
			invocation.Sources = append(invocation.Sources, argument)
		}
	}
	return invocation
}
