// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"strconv"
	"strings"
)

// Chain is the decoded value of [ShimChain]: the process that last ran
// the shim and every program the shim has delegated to within it.
type Chain struct {
	PID       int
	Delegated []string
}

// FormatChain encodes chain as the value of [ShimChain]: the pid on the
// first line, then one delegated path per line.
func FormatChain(chain Chain) string {
	lines := append([]string{strconv.Itoa(chain.PID)}, chain.Delegated...)
	return strings.Join(lines, "\n")
}

// ParseChain decodes a [FormatChain] value. A malformed value yields
// the zero Chain, which matches no process.
func ParseChain(value string) Chain {
	lines := strings.Split(value, "\n")
	pid, err := strconv.Atoi(lines[0])
	if err != nil || pid <= 0 {
		return Chain{}
	}
	chain := Chain{PID: pid}
	for _, path := range lines[1:] {
		if path != "" {
			chain.Delegated = append(chain.Delegated, path)
		}
	}
	return chain
}
