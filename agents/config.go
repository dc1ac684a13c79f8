package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/codeagent/format"
	"github.com/lexcodex/codeagent/framework"
	"github.com/lexcodex/codeagent/llm"
	"github.com/lexcodex/codeagent/validate"
)

const configDirName = "codeagent_cfg"

// Environment overrides applied after the config file.
const (
	EnvEngineEndpoint = "CODEAGENT_ENGINE_ENDPOINT"
	EnvModel          = "CODEAGENT_MODEL"
)

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// GlobalConfig matches codeagent_cfg/config.yaml inside the workspace.
type GlobalConfig struct {
	Version  string                     `yaml:"version" toml:"version"`
	Backends map[string]BackendOverride `yaml:"backends,omitempty" toml:"backends"`
	Engine   EngineConfig               `yaml:"engine" toml:"engine"`
	Python   PythonConfig               `yaml:"python" toml:"python"`
	CPP      CPPConfig                  `yaml:"cpp" toml:"cpp"`
	C        CConfig                    `yaml:"c" toml:"c"`
	Tools    ToolsConfig                `yaml:"tools" toml:"tools"`
	Features FeatureFlags               `yaml:"features" toml:"features"`
	Logging  LoggingConfig              `yaml:"logging" toml:"logging"`
}

// EngineConfig selects the inference server.
type EngineConfig struct {
	Kind     string `yaml:"kind" toml:"kind"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Model    string `yaml:"model" toml:"model"`
}

// PythonConfig configures black and the Python syntax check.
type PythonConfig struct {
	FormatterCmd   string `yaml:"formatter_cmd" toml:"formatter_cmd"`
	LineLength     int    `yaml:"line_length" toml:"line_length"`
	TargetVersion  string `yaml:"target_version" toml:"target_version"`
	Validator      string `yaml:"validator" toml:"validator"`
	InterpreterCmd string `yaml:"interpreter_cmd" toml:"interpreter_cmd"`
	// UsePyproject reads [tool.black] from the workspace pyproject.toml.
	// On by default; set false to ignore the file.
	UsePyproject bool `yaml:"use_pyproject" toml:"use_pyproject"`
}

// CPPConfig configures clang-format and the C++ compiler check.
type CPPConfig struct {
	Style        string `yaml:"style" toml:"style"`
	FormatterCmd string `yaml:"formatter_cmd" toml:"formatter_cmd"`
	Compiler     string `yaml:"compiler" toml:"compiler"`
	Standard     string `yaml:"standard" toml:"standard"`
}

// CConfig configures the C compiler check.
type CConfig struct {
	Compiler string `yaml:"compiler" toml:"compiler"`
}

// ToolsConfig bounds external tool invocations.
type ToolsConfig struct {
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// FeatureFlags toggles runtime capabilities.
type FeatureFlags struct {
	ValidateOutput bool          `yaml:"validate_output" toml:"validate_output"`
	MaxConcurrent  int           `yaml:"max_concurrent" toml:"max_concurrent"`
	CacheTTL       time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level         string `yaml:"level" toml:"level"`
	File          string `yaml:"file" toml:"file"`
	TelemetryFile string `yaml:"telemetry_file" toml:"telemetry_file"`
	LLM           bool   `yaml:"llm_debug" toml:"llm_debug"`
}

// DefaultConfigPath returns codeagent_cfg/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// DefaultGlobalConfig returns the configuration used when no file exists.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Version: "1.0.0",
		Engine:  EngineConfig{Kind: string(llm.KindOllama)},
		Python: PythonConfig{
			FormatterCmd:  "black",
			LineLength:    88,
			TargetVersion: "py310",
			Validator:     validate.PythonInterpreter,
			UsePyproject:  true,
		},
		CPP: CPPConfig{
			Style:        "google",
			FormatterCmd: "clang-format",
			Compiler:     "g++",
			Standard:     "c++17",
		},
		C:     CConfig{Compiler: "gcc"},
		Tools: ToolsConfig{Timeout: framework.DefaultCommandTimeout},
		Features: FeatureFlags{
			MaxConcurrent: 4,
			CacheTTL:      format.DefaultCacheTTL,
		},
		Logging: LoggingConfig{Level: "info", File: "codeagent.log"},
	}
}

// LoadGlobalConfig loads the config or returns defaults when missing. Files
// ending in .toml are decoded as TOML, anything else as YAML. Values absent
// from the file keep their defaults.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// SaveGlobalConfig writes the config to disk in the format its extension
// names.
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *GlobalConfig) applyEnv() {
	if v := os.Getenv(EnvEngineEndpoint); v != "" {
		c.Engine.Endpoint = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Engine.Model = v
	}
}

// Backend resolves the effective record for b: built-in defaults with the
// config file's overrides applied.
func (c *GlobalConfig) Backend(b Backend) (BackendConfig, error) {
	cfg, err := DefaultBackendConfig(b)
	if err != nil {
		return BackendConfig{}, err
	}
	if c == nil {
		return cfg, nil
	}
	if override, ok := c.Backends[string(b)]; ok {
		cfg = override.Apply(cfg)
	}
	return cfg, nil
}

// FormatConfig maps the python/cpp sections onto the formatter config.
// `[tool.black]` in the workspace pyproject.toml overrides the python
// section unless use_pyproject is false.
func (c *GlobalConfig) FormatConfig(workspace string) (format.Config, error) {
	out := format.DefaultConfig()
	if c == nil {
		return out, nil
	}
	var err error
	if out.PythonCommand, err = framework.ParseCommandLine(c.Python.FormatterCmd, "black"); err != nil {
		return out, err
	}
	if out.ClangCommand, err = framework.ParseCommandLine(c.CPP.FormatterCmd, "clang-format"); err != nil {
		return out, err
	}
	if c.Python.LineLength > 0 {
		out.Python.LineLength = c.Python.LineLength
	}
	if c.Python.TargetVersion != "" {
		out.Python.TargetVersion = c.Python.TargetVersion
	}
	if c.Python.UsePyproject {
		if out.Python, err = format.LoadPyprojectStyle(workspace, out.Python); err != nil {
			return out, err
		}
	}
	if c.CPP.Style != "" {
		out.C.Style = c.CPP.Style
	}
	if c.Tools.Timeout > 0 {
		out.Timeout = c.Tools.Timeout
	}
	return out, nil
}

// ValidateConfig maps the python/cpp/c sections onto the validator config.
func (c *GlobalConfig) ValidateConfig() (validate.Config, error) {
	out := validate.DefaultConfig()
	if c == nil {
		return out, nil
	}
	var err error
	if c.Python.Validator != "" {
		out.PythonChecker = c.Python.Validator
	}
	if out.PythonCommand, err = framework.ParseCommandLine(c.Python.InterpreterCmd, "python3"); err != nil {
		return out, err
	}
	if out.CPPCompiler, err = framework.ParseCommandLine(c.CPP.Compiler, "g++"); err != nil {
		return out, err
	}
	if out.CCompiler, err = framework.ParseCommandLine(c.C.Compiler, "gcc"); err != nil {
		return out, err
	}
	if c.CPP.Standard != "" {
		out.CPPStandard = c.CPP.Standard
	}
	if c.Tools.Timeout > 0 {
		out.Timeout = c.Tools.Timeout
	}
	return out, nil
}
