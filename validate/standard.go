package validate

import (
	"fmt"
	"time"

	"github.com/lexcodex/codeagent/framework"
)

// Python checker selections.
const (
	PythonTreeSitter  = "treesitter"
	PythonInterpreter = "interpreter"
)

// Config selects the checkers for the standard validator.
type Config struct {
	PythonChecker string
	PythonCommand []string
	CPPCompiler   []string
	CPPStandard   string
	CCompiler     []string
	TempDir       string
	Timeout       time.Duration
}

// DefaultConfig compiles Python with python3, C++ with g++ -std=c++17 and C
// with gcc.
func DefaultConfig() Config {
	return Config{
		PythonChecker: PythonInterpreter,
		CPPStandard:   "c++17",
		Timeout:       framework.DefaultCommandTimeout,
	}
}

// NewStandard builds the validator for Python, C++ and C. Interpreter and
// compiler checks fall back to the tree-sitter grammar when the tool cannot
// run.
func NewStandard(cfg Config, runner framework.CommandRunner, opts ...Option) (*Validator, error) {
	v := New(opts...)

	pyGrammar, err := NewTreeSitter(framework.LanguagePython)
	if err != nil {
		return nil, err
	}
	switch cfg.PythonChecker {
	case PythonTreeSitter:
		v.Register(framework.LanguagePython, pyGrammar)
	case "", PythonInterpreter:
		v.Register(framework.LanguagePython, NewInterpreter(cfg.PythonCommand, runner, cfg.Timeout), pyGrammar)
	default:
		return nil, fmt.Errorf("unknown python validator %q", cfg.PythonChecker)
	}

	var cppFlags []string
	if cfg.CPPStandard != "" {
		cppFlags = []string{"-std=" + cfg.CPPStandard}
	}
	for _, entry := range []struct {
		lang     framework.Language
		compiler []string
		flags    []string
	}{
		{framework.LanguageCPP, cfg.CPPCompiler, cppFlags},
		{framework.LanguageC, cfg.CCompiler, nil},
	} {
		compiler := NewCompiler(entry.compiler, entry.flags, entry.lang, runner, cfg.Timeout)
		compiler.TempDir = cfg.TempDir
		grammar, err := NewTreeSitter(entry.lang)
		if err != nil {
			return nil, err
		}
		v.Register(entry.lang, compiler, grammar)
	}
	return v, nil
}
