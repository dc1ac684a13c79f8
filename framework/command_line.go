package framework

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// ParseCommandLine splits a configured tool command such as
// `clang-format --fallback-style=llvm` into argv using POSIX shell word
// rules. An empty line yields fallback.
func ParseCommandLine(line string, fallback ...string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return append([]string(nil), fallback...), nil
	}
	fields, err := shell.Fields(line, nil)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return append([]string(nil), fallback...), nil
	}
	return fields, nil
}
