// Package llm adapts local inference servers to the agent's engine contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexcodex/codeagent/framework"
)

// LoadOptions tunes how a model is acquired.
type LoadOptions struct {
	// TrustRemoteCode allows model-supplied code to run during loading.
	TrustRemoteCode bool
	// Model overrides the name the server knows the model by.
	Model string
}

// Engine loads a model and hands back a completion handle.
type Engine interface {
	Load(ctx context.Context, modelPath string, opts LoadOptions) (Handle, error)
}

// Handle completes prompts against one loaded model. Complete returns the
// full decoded text: the prompt echoed back followed by the continuation.
type Handle interface {
	Complete(ctx context.Context, prompt string, params framework.SamplingParams) (string, error)
	Close() error
}

// Kind names an engine implementation in configuration.
type Kind string

const (
	KindOllama Kind = "ollama"
	KindOpenAI Kind = "openai"
)

// New builds the engine for kind.
func New(kind Kind, endpoint string) (Engine, error) {
	switch kind {
	case "", KindOllama:
		return NewOllama(endpoint), nil
	case KindOpenAI:
		return NewOpenAI(endpoint, os.Getenv("CODEAGENT_API_KEY")), nil
	}
	return nil, fmt.Errorf("unknown engine %q", kind)
}

// checkModelPath rejects model paths that do not exist locally.
func checkModelPath(modelPath string) error {
	if strings.TrimSpace(modelPath) == "" {
		return &framework.ModelLoadError{Path: modelPath, Err: errors.New("model path required")}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return &framework.ModelLoadError{Path: modelPath, Err: err}
	}
	return nil
}

// servedName is the name a server knows the model by: the override, or the
// base name of the model path.
func servedName(modelPath string, opts LoadOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return filepath.Base(filepath.Clean(modelPath))
}

// echoed enforces the echo contract for servers that return only the
// continuation.
func echoed(prompt, text string) string {
	if strings.HasPrefix(text, prompt) {
		return text
	}
	return prompt + text
}
