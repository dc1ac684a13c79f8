package llm

import (
	"context"
	"strings"
	"time"

	"github.com/lexcodex/codeagent/framework"
)

// InstrumentedEngine wraps an Engine so every loaded handle emits telemetry.
type InstrumentedEngine struct {
	Inner     Engine
	Telemetry framework.Telemetry
	Debug     bool
}

// Load implements Engine and reports the outcome as a model_load event.
func (e *InstrumentedEngine) Load(ctx context.Context, modelPath string, opts LoadOptions) (Handle, error) {
	start := time.Now()
	handle, err := e.Inner.Load(ctx, modelPath, opts)
	if e.Telemetry != nil {
		metadata := map[string]interface{}{
			"model_path":        modelPath,
			"trust_remote_code": opts.TrustRemoteCode,
			"duration_ms":       time.Since(start).Milliseconds(),
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		e.Telemetry.Emit(framework.Event{
			Type:      framework.EventModelLoad,
			Timestamp: time.Now().UTC(),
			Message:   "model load",
			Metadata:  metadata,
		})
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumentedHandle(handle, e.Telemetry, e.Debug), nil
}

// InstrumentedHandle wraps a Handle and emits telemetry for prompts and
// responses.
type InstrumentedHandle struct {
	Inner     Handle
	Telemetry framework.Telemetry
	Debug     bool
}

func NewInstrumentedHandle(inner Handle, telemetry framework.Telemetry, debug bool) *InstrumentedHandle {
	return &InstrumentedHandle{Inner: inner, Telemetry: telemetry, Debug: debug}
}

func (h *InstrumentedHandle) Complete(ctx context.Context, prompt string, params framework.SamplingParams) (string, error) {
	base := map[string]interface{}{
		"prompt_chars":   len(prompt),
		"prompt_preview": clip(prompt, 1024),
		"max_tokens":     params.MaxTokens,
		"temperature":    params.Temperature,
		"top_p":          params.TopP,
	}
	h.emit(ctx, framework.EventLLMPrompt, "llm prompt", base, map[string]interface{}{"prompt": clip(prompt, 8192)})
	start := time.Now()
	text, err := h.Inner.Complete(ctx, prompt, params)
	meta := map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
	} else {
		meta["completion_chars"] = len(text)
		continuation := strings.TrimPrefix(text, prompt)
		meta["text_preview"] = clip(continuation, 1024)
	}
	h.emit(ctx, framework.EventLLMResponse, "llm response", meta, nil)
	return text, err
}

func (h *InstrumentedHandle) Close() error { return h.Inner.Close() }

func (h *InstrumentedHandle) emit(ctx context.Context, kind framework.EventType, msg string, base, debugFields map[string]interface{}) {
	if h == nil || h.Telemetry == nil {
		return
	}
	metadata := map[string]interface{}{}
	for k, v := range base {
		metadata[k] = v
	}
	req, ok := framework.RequestContextFrom(ctx)
	if ok {
		metadata["action"] = string(req.Action)
		if req.Language.Known() {
			metadata["language"] = req.Language.String()
		}
	}
	if h.Debug {
		for k, v := range debugFields {
			metadata[k] = v
		}
	}
	h.Telemetry.Emit(framework.Event{
		Type:      kind,
		RequestID: req.ID,
		Timestamp: time.Now().UTC(),
		Message:   msg,
		Metadata:  metadata,
	})
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
