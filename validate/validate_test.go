package validate

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lexcodex/codeagent/framework"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRunner struct {
	mu    sync.Mutex
	paths []string
	run   func(req framework.CommandRequest) (string, string, error)
}

func (f *fakeRunner) Run(ctx context.Context, req framework.CommandRequest) (string, string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, req.Args[len(req.Args)-1])
	f.mu.Unlock()
	return f.run(req)
}

// sourceFile returns the temp path passed as the last compiler argument.
func sourceFile(req framework.CommandRequest) string {
	return req.Args[len(req.Args)-1]
}

func TestPythonTreeSitter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PythonChecker = PythonTreeSitter
	v, err := NewStandard(cfg, &fakeRunner{})
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, v.Validate(ctx, framework.LanguagePython, "def f():\n    return 1\n"))
	require.False(t, v.Validate(ctx, framework.LanguagePython, "def f(:\n"))

	res := v.Check(ctx, framework.LanguagePython, "class A:\n    pass\n")
	require.Equal(t, PolicyChecked, res.Policy)
	require.Equal(t, "tree-sitter-python", res.Checker)
}

func TestCompilerRemovesTempFileOnEveryPath(t *testing.T) {
	dir := t.TempDir()
	outcomes := []struct {
		name  string
		err   error
		valid bool
		ok    bool
	}{
		{"success", nil, true, true},
		{"rejected", &framework.ExitError{Code: 1}, false, true},
		{"fault", errors.New("signal: killed"), false, false},
	}
	for _, tc := range outcomes {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
				data, err := os.ReadFile(sourceFile(req))
				require.NoError(t, err)
				require.Equal(t, "int main() { return 0; }", string(data))
				return "", "", tc.err
			}}
			c := NewCompiler(nil, []string{"-std=c++17"}, framework.LanguageCPP, runner, time.Second)
			c.TempDir = dir

			valid, err := c.Check(context.Background(), "int main() { return 0; }")
			require.Equal(t, tc.valid, valid)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			entries, readErr := os.ReadDir(dir)
			require.NoError(t, readErr)
			require.Empty(t, entries)
		})
	}
}

func TestCompilerArguments(t *testing.T) {
	var got []string
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		got = req.Args
		return "", "", nil
	}}
	c := NewCompiler(nil, nil, framework.LanguageC, runner, 0)
	c.TempDir = t.TempDir()

	ok, err := c.Check(context.Background(), "int x;")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "gcc", got[0])
	require.Equal(t, "-fsyntax-only", got[1])
	require.True(t, strings.HasPrefix(filepath.Base(got[2]), "codeagent-"))
	require.Equal(t, ".c", filepath.Ext(got[2]))
}

func TestCompilerUsesUniquePathsConcurrently(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		time.Sleep(time.Millisecond)
		return "", "", nil
	}}
	c := NewCompiler(nil, nil, framework.LanguageCPP, runner, 0)
	c.TempDir = dir

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Check(context.Background(), "int x;")
			require.NoError(t, err)
			require.True(t, ok)
		}()
	}
	wg.Wait()

	seen := map[string]struct{}{}
	for _, p := range runner.paths {
		seen[p] = struct{}{}
	}
	require.Len(t, seen, 32)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCompilerUnavailableFallsBackToGrammar(t *testing.T) {
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		return "", "", framework.ErrCommandNotFound
	}}
	cfg := DefaultConfig()
	cfg.TempDir = t.TempDir()
	v, err := NewStandard(cfg, runner)
	require.NoError(t, err)
	ctx := context.Background()

	res := v.Check(ctx, framework.LanguageCPP, "int main() { return 0; }")
	require.Equal(t, PolicyChecked, res.Policy)
	require.Equal(t, "tree-sitter-cpp", res.Checker)
	require.True(t, res.Valid)
	require.Len(t, res.Errors, 1)

	require.False(t, v.Validate(ctx, framework.LanguageC, "int main( { return 0; }"))
}

func TestCompilerTimeoutIsRecoverable(t *testing.T) {
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		return "", "", framework.ErrCommandTimeout
	}}
	c := NewCompiler(nil, nil, framework.LanguageCPP, runner, time.Millisecond)
	c.TempDir = t.TempDir()

	core, logs := observer.New(zapcore.WarnLevel)
	v := New(WithLogger(zap.New(core)))
	v.Register(framework.LanguageCPP, c)

	res := v.Check(context.Background(), framework.LanguageCPP, "int x;")
	require.True(t, res.Valid)
	require.Equal(t, PolicyDegraded, res.Policy)
	require.ErrorIs(t, res.Errors[0], framework.ErrCommandTimeout)
	require.Equal(t, 1, logs.FilterMessage("unable to validate code, assuming valid").Len())
}

func TestUnknownLanguageIsPermissive(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	telemetry := &framework.RecordingTelemetry{}
	v, err := NewStandard(DefaultConfig(), &fakeRunner{}, WithLogger(zap.New(core)), WithTelemetry(telemetry))
	require.NoError(t, err)

	require.False(t, v.Supports(framework.LanguageUnknown))
	res := v.Check(context.Background(), framework.LanguageUnknown, "anything {{{")
	require.True(t, res.Valid)
	require.Equal(t, PolicyPermissive, res.Policy)
	require.Equal(t, 1, logs.FilterMessage("validation not implemented for language").Len())
	events := telemetry.OfType(framework.EventValidation)
	require.Len(t, events, 1)
	require.Equal(t, "permissive", events[0].Metadata["policy"])
}

func TestInterpreterChecker(t *testing.T) {
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		if strings.Contains(req.Input, "(:") {
			return "", "", &framework.ExitError{Code: syntaxExit}
		}
		return "", "", nil
	}}
	cfg := DefaultConfig()
	cfg.PythonChecker = PythonInterpreter
	v, err := NewStandard(cfg, runner)
	require.NoError(t, err)
	ctx := context.Background()

	res := v.Check(ctx, framework.LanguagePython, "def f():\n    return 1\n")
	require.True(t, res.Valid)
	require.Equal(t, "python3", res.Checker)
	require.False(t, v.Validate(ctx, framework.LanguagePython, "def f(:\n"))
}

func TestInterpreterFaultFallsBackToGrammar(t *testing.T) {
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		return "", "Traceback", &framework.ExitError{Code: 1}
	}}
	cfg := DefaultConfig()
	cfg.PythonChecker = PythonInterpreter
	v, err := NewStandard(cfg, runner)
	require.NoError(t, err)

	res := v.Check(context.Background(), framework.LanguagePython, "x = 1\n")
	require.True(t, res.Valid)
	require.Equal(t, "tree-sitter-python", res.Checker)
}

func TestDefaultPythonCheckerCompiles(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	v, err := NewStandard(DefaultConfig(), framework.NewLocalCommandRunner(0))
	require.NoError(t, err)
	ctx := context.Background()

	// The grammar accepts these; CPython's compile() does not.
	for _, src := range []string{
		"print \"hello\"\n",
		"exec \"x = 1\"\n",
		"x = 1\n  y = 2\n",
	} {
		res := v.Check(ctx, framework.LanguagePython, src)
		require.Equal(t, PolicyChecked, res.Policy, src)
		require.Equal(t, "python3", res.Checker, src)
		require.False(t, res.Valid, src)
	}
	require.True(t, v.Validate(ctx, framework.LanguagePython, "print('hello')\n"))
}

func TestDefaultPythonCheckerFallsBackWhenInterpreterMissing(t *testing.T) {
	runner := &fakeRunner{run: func(req framework.CommandRequest) (string, string, error) {
		return "", "", framework.ErrCommandNotFound
	}}
	v, err := NewStandard(DefaultConfig(), runner)
	require.NoError(t, err)

	res := v.Check(context.Background(), framework.LanguagePython, "def f():\n    return 1\n")
	require.True(t, res.Valid)
	require.Equal(t, PolicyChecked, res.Policy)
	require.Equal(t, "tree-sitter-python", res.Checker)
	require.Len(t, res.Errors, 1)
	require.ErrorIs(t, res.Errors[0], framework.ErrCommandNotFound)
}

func TestNewStandardRejectsUnknownPythonChecker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PythonChecker = "pyflakes"
	_, err := NewStandard(cfg, &fakeRunner{})
	require.Error(t, err)
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.py")
	bad := filepath.Join(dir, "bad.py")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(good, []byte("def f():\n    return 1\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("def f(:\n"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0o644))

	cfg := DefaultConfig()
	cfg.PythonChecker = PythonTreeSitter
	v, err := NewStandard(cfg, &fakeRunner{})
	require.NoError(t, err)

	results, err := ValidateFiles(context.Background(), v, []string{good, bad, other}, framework.LanguageUnknown, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].Valid)
	require.False(t, results[1].Valid)
	require.Equal(t, framework.LanguageUnknown, results[2].Language)
	require.Equal(t, PolicyPermissive, results[2].Policy)

	_, err = ValidateFiles(context.Background(), v, []string{filepath.Join(dir, "missing.py")}, framework.LanguageUnknown, 1)
	require.Error(t, err)
}
