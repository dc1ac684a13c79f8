package format

import (
	"time"

	"github.com/lexcodex/codeagent/framework"
)

// Config selects the tools and styles for the standard dispatcher.
type Config struct {
	PythonCommand []string
	Python        PythonStyle
	ClangCommand  []string
	C             CStyle
	Timeout       time.Duration
}

// DefaultConfig returns black and clang-format with their default styles.
func DefaultConfig() Config {
	return Config{
		Python:  DefaultPythonStyle(),
		C:       DefaultCStyle(),
		Timeout: framework.DefaultCommandTimeout,
	}
}

// NewStandard registers black for Python and clang-format for C and C++.
func NewStandard(cfg Config, runner framework.CommandRunner, opts ...Option) *Dispatcher {
	d := NewDispatcher(opts...)
	d.Register(framework.LanguagePython, NewBlack(cfg.PythonCommand, cfg.Python, runner, cfg.Timeout))
	d.Register(framework.LanguageCPP, NewClangFormat(cfg.ClangCommand, cfg.C, framework.LanguageCPP, runner, cfg.Timeout))
	d.Register(framework.LanguageC, NewClangFormat(cfg.ClangCommand, cfg.C, framework.LanguageC, runner, cfg.Timeout))
	return d
}
