package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lexcodex/codeagent/framework"
)

// Compiler runs `<compiler> -fsyntax-only` against a temporary source file.
// Every call writes its own uniquely named file and removes it on all exit
// paths, so concurrent validations never share state.
type Compiler struct {
	Command []string
	Flags   []string
	Lang    framework.Language
	TempDir string
	Runner  framework.CommandRunner
	Timeout time.Duration
}

// NewCompiler returns a compiler checker. An empty command selects g++ for
// C++ and gcc for C.
func NewCompiler(command []string, flags []string, lang framework.Language, runner framework.CommandRunner, timeout time.Duration) *Compiler {
	if len(command) == 0 {
		if lang == framework.LanguageC {
			command = []string{"gcc"}
		} else {
			command = []string{"g++"}
		}
	}
	return &Compiler{
		Command: command,
		Flags:   flags,
		Lang:    lang,
		Runner:  runner,
		Timeout: timeout,
	}
}

// Name implements Checker.
func (c *Compiler) Name() string { return filepath.Base(c.Command[0]) }

// Check implements Checker. A non-zero exit means the code was rejected; a
// missing compiler or an expired timeout is reported as an error.
func (c *Compiler) Check(ctx context.Context, code string) (bool, error) {
	if c.Runner == nil {
		return false, errors.New("command runner missing")
	}
	path, err := c.writeSource(code)
	if err != nil {
		return false, err
	}
	defer os.Remove(path)

	args := append([]string{}, c.Command...)
	args = append(args, c.Flags...)
	args = append(args, "-fsyntax-only", path)
	_, _, err = c.Runner.Run(ctx, framework.CommandRequest{
		Workdir: filepath.Dir(path),
		Args:    args,
		Timeout: c.Timeout,
	})
	switch {
	case err == nil:
		return true, nil
	case framework.ToolUnavailable(err):
		return false, err
	case framework.ExitCode(err) > 0:
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", c.Name(), err)
	}
}

func (c *Compiler) writeSource(code string) (string, error) {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "codeagent-"+uuid.NewString()+c.Lang.Extension())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp source: %w", err)
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp source: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp source: %w", err)
	}
	return path, nil
}
