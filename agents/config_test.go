package agents

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadGlobalConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvEngineEndpoint, "")
	t.Setenv(EnvModel, "")
	cfg, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultGlobalConfig(), cfg)
	require.Equal(t, 10*time.Second, cfg.Tools.Timeout)
}

func TestLoadGlobalConfigYAML(t *testing.T) {
	t.Setenv(EnvEngineEndpoint, "")
	t.Setenv(EnvModel, "")
	path := DefaultConfigPath(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  kind: openai
  endpoint: http://gpu:8000/v1
backends:
  qwen:
    trust_remote_code: false
    sampling:
      max_tokens: 512
cpp:
  style: llvm
tools:
  timeout: 30s
features:
  validate_output: true
`), 0o644))

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.Engine.Kind)
	require.Equal(t, "http://gpu:8000/v1", cfg.Engine.Endpoint)
	require.Equal(t, 30*time.Second, cfg.Tools.Timeout)
	require.True(t, cfg.Features.ValidateOutput)
	require.Equal(t, "g++", cfg.CPP.Compiler, "unset keys keep defaults")

	qwen, err := cfg.Backend(BackendQwen)
	require.NoError(t, err)
	require.False(t, qwen.TrustRemoteCode)
	require.Equal(t, 512, qwen.Sampling.MaxTokens)
	require.Equal(t, 0.95, qwen.Sampling.TopP)

	fc, err := cfg.FormatConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "llvm", fc.C.Style)
	require.Equal(t, 30*time.Second, fc.Timeout)
}

func TestLoadGlobalConfigTOMLAndEnv(t *testing.T) {
	t.Setenv(EnvEngineEndpoint, "http://override:11434")
	t.Setenv(EnvModel, "qwen2.5-coder:7b")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
endpoint = "http://ignored"

[python]
validator = "interpreter"
interpreter_cmd = "python3 -I"

[c]
compiler = "clang -w"
`), 0o644))

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://override:11434", cfg.Engine.Endpoint)
	require.Equal(t, "qwen2.5-coder:7b", cfg.Engine.Model)

	vc, err := cfg.ValidateConfig()
	require.NoError(t, err)
	require.Equal(t, "interpreter", vc.PythonChecker)
	require.Equal(t, []string{"python3", "-I"}, vc.PythonCommand)
	require.Equal(t, []string{"clang", "-w"}, vc.CCompiler)
	require.Equal(t, "c++17", vc.CPPStandard)
}

func writePyproject(t *testing.T) string {
	t.Helper()
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "pyproject.toml"), []byte(`
[tool.black]
line-length = 100
target-version = ["py311"]
`), 0o644))
	return workspace
}

func TestFormatConfigReadsPyprojectByDefault(t *testing.T) {
	t.Setenv(EnvEngineEndpoint, "")
	t.Setenv(EnvModel, "")
	workspace := writePyproject(t)
	cfg, err := LoadGlobalConfig(DefaultConfigPath(workspace))
	require.NoError(t, err)
	require.True(t, cfg.Python.UsePyproject)

	fc, err := cfg.FormatConfig(workspace)
	require.NoError(t, err)
	require.Equal(t, 100, fc.Python.LineLength)
	require.Equal(t, "py311", fc.Python.TargetVersion)
	require.Equal(t, []string{"black"}, fc.PythonCommand)
}

func TestFormatConfigIgnoresPyprojectWhenDisabled(t *testing.T) {
	workspace := writePyproject(t)
	path := DefaultConfigPath(workspace)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("python:\n  use_pyproject: false\n"), 0o644))
	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)

	fc, err := cfg.FormatConfig(workspace)
	require.NoError(t, err)
	require.Equal(t, 88, fc.Python.LineLength)
	require.Equal(t, "py310", fc.Python.TargetVersion)
}

func TestSaveGlobalConfigRoundTrip(t *testing.T) {
	t.Setenv(EnvEngineEndpoint, "")
	t.Setenv(EnvModel, "")
	for _, name := range []string{"config.yaml", "config.toml"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		cfg := DefaultGlobalConfig()
		cfg.Engine.Model = "codellama"
		cfg.Tools.Timeout = 3 * time.Second
		require.NoError(t, SaveGlobalConfig(path, cfg))

		loaded, err := LoadGlobalConfig(path)
		require.NoError(t, err)
		require.Equal(t, "codellama", loaded.Engine.Model)
		require.Equal(t, 3*time.Second, loaded.Tools.Timeout)
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("Qwen")
	require.NoError(t, err)
	require.Equal(t, BackendQwen, b)
	_, err = ParseBackend("gpt")
	require.Error(t, err)
}

func TestDefaultBackendConfigs(t *testing.T) {
	claude, err := DefaultBackendConfig(BackendClaude)
	require.NoError(t, err)
	require.Equal(t, 100000, claude.ContextWindow)
	require.False(t, claude.TrustRemoteCode)

	qwen, err := DefaultBackendConfig(BackendQwen)
	require.NoError(t, err)
	require.Equal(t, 32768, qwen.ContextWindow)
	require.True(t, qwen.TrustRemoteCode)
	require.Equal(t, claude.SystemPrompt, qwen.SystemPrompt)
}
