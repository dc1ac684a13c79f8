package framework

import "fmt"

// Action names one of the agent operations.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionExplain  Action = "explain"
	ActionRefactor Action = "refactor"
)

// ParseAction validates a CLI or config string.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionGenerate, ActionExplain, ActionRefactor:
		return Action(raw), nil
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

// SamplingParams are passed opaquely to the inference engine. Sampling is
// always enabled; zero values mean "use the engine default".
type SamplingParams struct {
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature" json:"temperature"`
	TopP        float64 `yaml:"top_p" toml:"top_p" json:"top_p"`
}

// Merge returns p with every non-zero field of override applied.
func (p SamplingParams) Merge(override SamplingParams) SamplingParams {
	if override.MaxTokens != 0 {
		p.MaxTokens = override.MaxTokens
	}
	if override.Temperature != 0 {
		p.Temperature = override.Temperature
	}
	if override.TopP != 0 {
		p.TopP = override.TopP
	}
	return p
}

// GenerationRequest is assembled once per agent call and never mutated.
type GenerationRequest struct {
	ID             string
	Action         Action
	TaskPrompt     string
	Language       Language
	SystemPreamble string
	Sampling       SamplingParams
}
