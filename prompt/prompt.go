// Package prompt builds the exact text sent to the inference engine and
// isolates the model continuation from the decoded completion.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lexcodex/codeagent/framework"
)

// Separator joins the preamble, instruction and payload.
const Separator = "\n\n"

// Composed is the byte-exact prompt. The slicer depends on it being
// reproduced verbatim, so it is only built through Compose.
type Composed string

// Compose concatenates the three parts with fixed separators. The trailing
// separator leaves the model positioned on a fresh paragraph.
func Compose(systemPreamble, instruction, payload string) Composed {
	var b strings.Builder
	b.Grow(len(systemPreamble) + len(instruction) + len(payload) + 3*len(Separator))
	b.WriteString(systemPreamble)
	b.WriteString(Separator)
	b.WriteString(instruction)
	b.WriteString(Separator)
	b.WriteString(payload)
	b.WriteString(Separator)
	return Composed(b.String())
}

func (c Composed) String() string { return string(c) }

// Len returns the byte length of the prompt.
func (c Composed) Len() int { return len(c) }

// Slice strips the echoed prompt from raw and trims the remainder. A
// completion that does not begin with the exact prompt is rejected with
// *framework.ResponseSliceError rather than guessed at.
func Slice(raw string, p Composed) (string, error) {
	if !strings.HasPrefix(raw, string(p)) {
		return "", &framework.ResponseSliceError{PromptLen: len(p), CompletionLen: len(raw)}
	}
	return strings.TrimSpace(raw[len(p):]), nil
}

// FenceCode wraps user code in an untagged fence for explain/refactor
// payloads.
func FenceCode(code string) string {
	return "```\n" + code + "\n```"
}

// GenerateInstruction is the instruction line for code generation.
func GenerateInstruction(lang framework.Language) string {
	return fmt.Sprintf("Generate %s code for the following task:", lang)
}

// ExplainInstruction is the instruction line for code explanation.
const ExplainInstruction = "Explain the following code in detail, including its purpose, functionality, and any notable patterns or techniques used:"

// RefactorInstruction is the instruction line for refactoring.
func RefactorInstruction(instructions string) string {
	return "Refactor the following code according to these instructions: " + instructions
}

// ForRequest composes the prompt for a generation request.
func ForRequest(req framework.GenerationRequest, instructions string) (Composed, error) {
	switch req.Action {
	case framework.ActionGenerate:
		return Compose(req.SystemPreamble, GenerateInstruction(req.Language), req.TaskPrompt), nil
	case framework.ActionExplain:
		return Compose(req.SystemPreamble, ExplainInstruction, FenceCode(req.TaskPrompt)), nil
	case framework.ActionRefactor:
		return Compose(req.SystemPreamble, RefactorInstruction(instructions), FenceCode(req.TaskPrompt)), nil
	default:
		return "", fmt.Errorf("no prompt template for action %q", req.Action)
	}
}
