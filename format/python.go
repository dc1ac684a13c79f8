package format

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lexcodex/codeagent/framework"
)

// PythonStyle is the black configuration.
type PythonStyle struct {
	LineLength    int    `yaml:"line_length" toml:"line_length"`
	TargetVersion string `yaml:"target_version" toml:"target_version"`
}

// DefaultPythonStyle mirrors black's defaults pinned to py310.
func DefaultPythonStyle() PythonStyle {
	return PythonStyle{LineLength: 88, TargetVersion: "py310"}
}

var targetVersionPattern = regexp.MustCompile(`^py3\d{1,2}$`)

// Validate rejects styles black would refuse.
func (s PythonStyle) Validate() error {
	if s.LineLength <= 0 {
		return fmt.Errorf("invalid line length %d", s.LineLength)
	}
	if !targetVersionPattern.MatchString(s.TargetVersion) {
		return fmt.Errorf("invalid target version %q", s.TargetVersion)
	}
	return nil
}

// Black pipes code through the black formatter.
type Black struct {
	Command []string
	Style   PythonStyle
	Runner  framework.CommandRunner
	Timeout time.Duration
}

// NewBlack builds a black formatter. An empty command uses `black` from PATH.
func NewBlack(command []string, style PythonStyle, runner framework.CommandRunner, timeout time.Duration) *Black {
	if len(command) == 0 {
		command = []string{"black"}
	}
	return &Black{Command: command, Style: style, Runner: runner, Timeout: timeout}
}

// Format implements Formatter.
func (b *Black) Format(ctx context.Context, code string) (string, error) {
	if b.Runner == nil {
		return "", errNoRunner
	}
	if err := b.Style.Validate(); err != nil {
		return "", err
	}
	args := append([]string{}, b.Command...)
	args = append(args,
		"--quiet",
		"--line-length", strconv.Itoa(b.Style.LineLength),
		"--target-version", b.Style.TargetVersion,
		"-",
	)
	stdout, stderr, err := b.Runner.Run(ctx, framework.CommandRequest{
		Args:    args,
		Input:   code,
		Timeout: b.Timeout,
	})
	if err != nil {
		return "", toolError("black", err, stderr)
	}
	return stdout, nil
}

type pyproject struct {
	Tool struct {
		Black struct {
			LineLength    int      `toml:"line-length"`
			TargetVersion []string `toml:"target-version"`
		} `toml:"black"`
	} `toml:"tool"`
}

// LoadPyprojectStyle overlays `[tool.black]` settings from dir/pyproject.toml
// onto base. A missing file returns base unchanged.
func LoadPyprojectStyle(dir string, base PythonStyle) (PythonStyle, error) {
	if dir == "" {
		return base, nil
	}
	path := filepath.Join(dir, "pyproject.toml")
	var doc pyproject
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return base, fmt.Errorf("read %s: %w", path, err)
	}
	style := base
	if doc.Tool.Black.LineLength > 0 {
		style.LineLength = doc.Tool.Black.LineLength
	}
	if len(doc.Tool.Black.TargetVersion) > 0 {
		style.TargetVersion = strings.ToLower(doc.Tool.Black.TargetVersion[0])
	}
	return style, nil
}
