package framework

import (
	"errors"
	"fmt"
)

// ErrFormattingDegraded marks a formatter that could not run. It is carried
// in format results for logging; the formatted text falls back to the input.
var ErrFormattingDegraded = errors.New("formatting degraded")

// ModelLoadError reports that the model or tokenizer could not be acquired.
// Agent construction fails with it and no retry is attempted.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// GenerationError reports a failed or unusable inference call.
type GenerationError struct {
	Action Action
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResponseSliceError reports a completion that does not start with the
// composed prompt, so the continuation cannot be isolated safely.
type ResponseSliceError struct {
	PromptLen     int
	CompletionLen int
}

func (e *ResponseSliceError) Error() string {
	if e.CompletionLen < e.PromptLen {
		return fmt.Sprintf("completion shorter than prompt (%d < %d bytes)", e.CompletionLen, e.PromptLen)
	}
	return fmt.Sprintf("completion does not start with the %d byte prompt", e.PromptLen)
}

// ContextWindowError reports a prompt that cannot fit the backend window.
type ContextWindowError struct {
	Estimated int
	Limit     int
}

func (e *ContextWindowError) Error() string {
	return fmt.Sprintf("prompt needs ~%d tokens, context window is %d", e.Estimated, e.Limit)
}
