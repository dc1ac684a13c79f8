package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexcodex/codeagent/framework"
)

// syntaxExit is the status the compile script uses for SyntaxError so other
// interpreter failures can be told apart.
const syntaxExit = 3

const compileScript = `import sys
try:
    compile(sys.stdin.read(), "<string>", "exec")
except SyntaxError:
    sys.exit(3)
`

// Interpreter asks a Python interpreter to compile the code without running
// it.
type Interpreter struct {
	Command []string
	Runner  framework.CommandRunner
	Timeout time.Duration
}

// NewInterpreter returns an interpreter checker, defaulting to python3.
func NewInterpreter(command []string, runner framework.CommandRunner, timeout time.Duration) *Interpreter {
	if len(command) == 0 {
		command = []string{"python3"}
	}
	return &Interpreter{Command: command, Runner: runner, Timeout: timeout}
}

// Name implements Checker.
func (i *Interpreter) Name() string { return i.Command[0] }

// Check implements Checker.
func (i *Interpreter) Check(ctx context.Context, code string) (bool, error) {
	if i.Runner == nil {
		return false, errors.New("command runner missing")
	}
	args := append([]string{}, i.Command...)
	args = append(args, "-c", compileScript)
	_, stderr, err := i.Runner.Run(ctx, framework.CommandRequest{
		Args:    args,
		Input:   code,
		Timeout: i.Timeout,
	})
	switch {
	case err == nil:
		return true, nil
	case framework.ExitCode(err) == syntaxExit:
		return false, nil
	case framework.ToolUnavailable(err):
		return false, err
	default:
		return false, fmt.Errorf("%s: %w: %s", i.Name(), err, stderr)
	}
}
