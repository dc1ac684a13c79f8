// Package agents provides the coding agent facade: one implementation
// parameterised by a Backend record, composing prompts, calling the
// inference engine and post-processing the continuation.
package agents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/codeblock"
	"github.com/lexcodex/codeagent/format"
	"github.com/lexcodex/codeagent/framework"
	"github.com/lexcodex/codeagent/llm"
	"github.com/lexcodex/codeagent/prompt"
	"github.com/lexcodex/codeagent/validate"
)

// DefaultRefactorInstructions is used when the caller gives none.
const DefaultRefactorInstructions = "Improve code quality and efficiency"

// Artifact is the post-processed code returned by generate and refactor.
type Artifact struct {
	Text string
	// Language is the language the text was formatted as.
	Language framework.Language
	Format   format.Policy
	// Validation is set when output validation is enabled.
	Validation *validate.Result
}

// Agent is Ready once constructed; there is no uninitialised value to use.
// Methods are safe for concurrent use.
type Agent struct {
	modelPath      string
	cfg            BackendConfig
	handle         llm.Handle
	formatter      *format.Dispatcher
	validator      *validate.Validator
	validateOutput bool
	loadModel      string
	logger         *zap.Logger
	telemetry      framework.Telemetry
}

// Option configures an Agent.
type Option func(*Agent)

// WithFormatter replaces the standard formatter dispatcher.
func WithFormatter(d *format.Dispatcher) Option {
	return func(a *Agent) { a.formatter = d }
}

// WithValidator replaces the standard validator.
func WithValidator(v *validate.Validator) Option {
	return func(a *Agent) { a.validator = v }
}

// WithValidateOutput validates generated and refactored code.
func WithValidateOutput(enabled bool) Option {
	return func(a *Agent) { a.validateOutput = enabled }
}

// WithServedModel overrides the name the engine loads the model under.
func WithServedModel(name string) Option {
	return func(a *Agent) { a.loadModel = name }
}

// WithLogger sets the agent logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTelemetry sets the telemetry sink for action events.
func WithTelemetry(t framework.Telemetry) Option {
	return func(a *Agent) { a.telemetry = t }
}

// New loads the model and returns a Ready agent. A load failure is returned
// as *framework.ModelLoadError.
func New(ctx context.Context, engine llm.Engine, modelPath string, cfg BackendConfig, opts ...Option) (*Agent, error) {
	a := &Agent{
		modelPath: modelPath,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.formatter == nil {
		a.formatter = format.NewStandard(format.DefaultConfig(), framework.NewLocalCommandRunner(0))
	}
	if a.validator == nil {
		v, err := validate.NewStandard(validate.DefaultConfig(), framework.NewLocalCommandRunner(0))
		if err != nil {
			return nil, err
		}
		a.validator = v
	}
	if engine == nil {
		return nil, &framework.ModelLoadError{Path: modelPath, Err: errors.New("inference engine missing")}
	}

	a.logger.Info("loading model", zap.String("backend", string(cfg.Name)), zap.String("model_path", modelPath))
	handle, err := engine.Load(ctx, modelPath, llm.LoadOptions{
		TrustRemoteCode: cfg.TrustRemoteCode,
		Model:           a.loadModel,
	})
	if err != nil {
		var loadErr *framework.ModelLoadError
		if !errors.As(err, &loadErr) {
			err = &framework.ModelLoadError{Path: modelPath, Err: err}
		}
		a.logger.Error("failed to load model", zap.String("backend", string(cfg.Name)), zap.Error(err))
		return nil, err
	}
	a.handle = handle
	a.logger.Info("model loaded successfully", zap.String("backend", string(cfg.Name)))
	return a, nil
}

// GenerateCode generates code in lang for task.
func (a *Agent) GenerateCode(ctx context.Context, task string, lang framework.Language) (*Artifact, error) {
	a.logger.Info("generating code from prompt", zap.Stringer("language", lang))
	text, err := a.run(ctx, framework.ActionGenerate, task, lang, "")
	if err != nil {
		a.logger.Error("code generation failed", zap.Error(err))
		return nil, err
	}
	return a.postProcess(ctx, text, lang), nil
}

// ExplainCode returns the model's explanation of code, unformatted.
func (a *Agent) ExplainCode(ctx context.Context, code string) (string, error) {
	a.logger.Info("generating code explanation")
	text, err := a.run(ctx, framework.ActionExplain, code, framework.LanguageUnknown, "")
	if err != nil {
		a.logger.Error("code explanation failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

// RefactorCode rewrites code per instructions. The returned block is the
// one tagged lang, else the first block, else the whole continuation.
func (a *Agent) RefactorCode(ctx context.Context, code, instructions string, lang framework.Language) (*Artifact, error) {
	if instructions == "" {
		instructions = DefaultRefactorInstructions
	}
	a.logger.Info("refactoring code", zap.Stringer("language", lang))
	text, err := a.run(ctx, framework.ActionRefactor, code, lang, instructions)
	if err != nil {
		a.logger.Error("code refactoring failed", zap.Error(err))
		return nil, err
	}
	return a.postProcess(ctx, text, lang), nil
}

// FormatCode formats code with the language formatter, returning it
// unchanged when formatting is unavailable.
func (a *Agent) FormatCode(ctx context.Context, code string, lang framework.Language) string {
	return a.formatter.Format(ctx, lang, code)
}

// ValidateCode reports whether code is syntactically valid.
func (a *Agent) ValidateCode(ctx context.Context, code string, lang framework.Language) bool {
	return a.validator.Validate(ctx, lang, code)
}

// Info describes the loaded model.
func (a *Agent) Info() map[string]interface{} {
	return map[string]interface{}{
		"model_path": a.modelPath,
		"config":     a.cfg,
	}
}

// Config returns the backend record the agent runs with.
func (a *Agent) Config() BackendConfig { return a.cfg }

// Close releases the model handle.
func (a *Agent) Close() error {
	if a.handle == nil {
		return nil
	}
	return a.handle.Close()
}

// run composes the prompt, completes it and slices off the echo.
func (a *Agent) run(ctx context.Context, action framework.Action, payload string, lang framework.Language, instructions string) (string, error) {
	req := framework.GenerationRequest{
		ID:             uuid.NewString(),
		Action:         action,
		TaskPrompt:     payload,
		Language:       lang,
		SystemPreamble: a.cfg.SystemPrompt,
		Sampling:       a.cfg.Sampling,
	}
	composed, err := prompt.ForRequest(req, instructions)
	if err != nil {
		return "", &framework.GenerationError{Action: action, Err: err}
	}
	if a.cfg.ContextWindow > 0 {
		if estimated := framework.EstimateTokens(composed.String()); estimated > a.cfg.ContextWindow {
			return "", &framework.GenerationError{Action: action, Err: &framework.ContextWindowError{
				Estimated: estimated,
				Limit:     a.cfg.ContextWindow,
			}}
		}
	}

	ctx = framework.WithRequestContext(ctx, framework.RequestContext{ID: req.ID, Action: action, Language: lang})
	start := time.Now()
	a.emit(framework.EventActionStart, req, map[string]interface{}{"prompt_bytes": composed.Len()})

	raw, err := a.handle.Complete(ctx, composed.String(), req.Sampling)
	if err == nil {
		var text string
		if text, err = prompt.Slice(raw, composed); err == nil {
			a.emit(framework.EventActionFinish, req, map[string]interface{}{
				"duration_ms":      time.Since(start).Milliseconds(),
				"completion_bytes": len(text),
			})
			return text, nil
		}
	}
	a.emit(framework.EventActionFinish, req, map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       err.Error(),
	})
	return "", &framework.GenerationError{Action: action, Err: err}
}

// postProcess formats and optionally validates the selected code. A fenced
// block is handled as the language its tag names, which differs from lang
// when the block was a fallback; unfenced text keeps lang.
func (a *Agent) postProcess(ctx context.Context, text string, lang framework.Language) *Artifact {
	choice := codeblock.Choose(codeblock.Extract(text), lang, text)
	codeLang := lang
	if choice.Fenced {
		codeLang = choice.Language()
		if codeLang != lang {
			a.logger.Debug("selected block differs from requested language",
				zap.Stringer("requested", lang),
				zap.String("tag", choice.Tag))
		}
	}
	res := a.formatter.Dispatch(ctx, codeLang, choice.Code)
	artifact := &Artifact{Text: res.Text, Language: codeLang, Format: res.Policy}
	if a.validateOutput {
		check := a.validator.Check(ctx, codeLang, artifact.Text)
		artifact.Validation = &check
		if !check.Valid {
			a.logger.Warn("generated code failed validation", zap.Stringer("language", codeLang))
		}
	}
	return artifact
}

func (a *Agent) emit(kind framework.EventType, req framework.GenerationRequest, meta map[string]interface{}) {
	if a.telemetry == nil {
		return
	}
	meta["action"] = string(req.Action)
	meta["backend"] = string(a.cfg.Name)
	if req.Language.Known() {
		meta["language"] = req.Language.String()
	}
	a.telemetry.Emit(framework.Event{
		Type:      kind,
		RequestID: req.ID,
		Message:   string(req.Action),
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}
