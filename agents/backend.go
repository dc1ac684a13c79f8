package agents

import (
	"fmt"
	"strings"

	"github.com/lexcodex/codeagent/framework"
)

// Backend selects a model family. Backends differ only in configuration.
type Backend string

const (
	BackendClaude Backend = "claude"
	BackendQwen   Backend = "qwen"
)

// Backends lists the supported backends in CLI order.
func Backends() []Backend { return []Backend{BackendClaude, BackendQwen} }

// ParseBackend resolves a backend name, case-insensitively.
func ParseBackend(raw string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown agent type %q", raw)
}

// DefaultSystemPrompt is the preamble shared by the built-in backends.
const DefaultSystemPrompt = `You are an AI coding assistant. Your task is to help users by:
    1. Generating high-quality, efficient code in Python and C++
    2. Explaining code functionality and implementation details
    3. Suggesting improvements and refactoring options
    4. Following best practices and coding standards
    Please ensure all generated code is well-documented and follows language-specific conventions.`

// BackendConfig is the per-backend record driving one agent.
type BackendConfig struct {
	Name            Backend                  `yaml:"name" toml:"name" json:"name"`
	Model           string                   `yaml:"model" toml:"model" json:"model"`
	TrustRemoteCode bool                     `yaml:"trust_remote_code" toml:"trust_remote_code" json:"trust_remote_code"`
	SystemPrompt    string                   `yaml:"system_prompt" toml:"system_prompt" json:"system_prompt"`
	Sampling        framework.SamplingParams `yaml:"sampling" toml:"sampling" json:"sampling"`
	ContextWindow   int                      `yaml:"context_window" toml:"context_window" json:"context_window"`
}

// DefaultBackendConfig returns the built-in record for b.
func DefaultBackendConfig(b Backend) (BackendConfig, error) {
	sampling := framework.SamplingParams{Temperature: 0.7, TopP: 0.95}
	switch b {
	case BackendClaude:
		sampling.MaxTokens = 4096
		return BackendConfig{
			Name:          BackendClaude,
			Model:         "claude-3.5",
			SystemPrompt:  DefaultSystemPrompt,
			Sampling:      sampling,
			ContextWindow: 100000,
		}, nil
	case BackendQwen:
		sampling.MaxTokens = 2048
		return BackendConfig{
			Name:            BackendQwen,
			Model:           "Qwen-7B",
			TrustRemoteCode: true,
			SystemPrompt:    DefaultSystemPrompt,
			Sampling:        sampling,
			ContextWindow:   32768,
		}, nil
	}
	return BackendConfig{}, fmt.Errorf("unknown agent type %q", b)
}

// BackendOverride holds the config-file fields that replace built-ins.
// Nil and zero values leave the default in place.
type BackendOverride struct {
	Model           string                   `yaml:"model,omitempty" toml:"model"`
	TrustRemoteCode *bool                    `yaml:"trust_remote_code,omitempty" toml:"trust_remote_code"`
	SystemPrompt    string                   `yaml:"system_prompt,omitempty" toml:"system_prompt"`
	Sampling        framework.SamplingParams `yaml:"sampling,omitempty" toml:"sampling"`
	ContextWindow   int                      `yaml:"context_window,omitempty" toml:"context_window"`
}

// Apply merges the override into cfg.
func (o BackendOverride) Apply(cfg BackendConfig) BackendConfig {
	if o.Model != "" {
		cfg.Model = o.Model
	}
	if o.TrustRemoteCode != nil {
		cfg.TrustRemoteCode = *o.TrustRemoteCode
	}
	if o.SystemPrompt != "" {
		cfg.SystemPrompt = o.SystemPrompt
	}
	if o.ContextWindow > 0 {
		cfg.ContextWindow = o.ContextWindow
	}
	cfg.Sampling = cfg.Sampling.Merge(o.Sampling)
	return cfg
}
