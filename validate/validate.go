// Package validate checks the syntax of generated code.
//
// Each language owns an ordered chain of checkers. The first checker that
// can run decides; a checker error (missing tool, timeout, parser fault)
// passes to the next one. When nothing can run, or the language is unknown,
// the result is permissive: the code is reported valid and a warning is
// logged.
package validate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/framework"
)

// Checker validates code for one language. An error means the check could
// not be carried out, not that the code is invalid.
type Checker interface {
	Name() string
	Check(ctx context.Context, code string) (bool, error)
}

// Policy names the branch a validation took.
type Policy string

const (
	// PolicyChecked means a checker decided.
	PolicyChecked Policy = "checked"
	// PolicyDegraded means every checker failed to run.
	PolicyDegraded Policy = "degraded"
	// PolicyPermissive means the language has no checkers.
	PolicyPermissive Policy = "permissive"
)

// Result describes one validation.
type Result struct {
	Valid   bool
	Policy  Policy
	Checker string
	Errors  []error
}

// Validator routes code to its language's checker chain.
type Validator struct {
	checkers  map[framework.Language][]Checker
	logger    *zap.Logger
	telemetry framework.Telemetry
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithTelemetry sets the telemetry sink.
func WithTelemetry(t framework.Telemetry) Option {
	return func(v *Validator) { v.telemetry = t }
}

// New returns a validator with no checkers.
func New(opts ...Option) *Validator {
	v := &Validator{
		checkers: map[framework.Language][]Checker{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register appends checkers to lang's chain.
func (v *Validator) Register(lang framework.Language, checkers ...Checker) {
	v.checkers[lang] = append(v.checkers[lang], checkers...)
}

// Supports reports whether lang has checkers; unsupported languages take the
// permissive policy.
func (v *Validator) Supports(lang framework.Language) bool {
	return len(v.checkers[lang]) > 0
}

// Validate reports whether code is syntactically valid.
func (v *Validator) Validate(ctx context.Context, lang framework.Language, code string) bool {
	return v.Check(ctx, lang, code).Valid
}

// Check validates code and reports which policy applied.
func (v *Validator) Check(ctx context.Context, lang framework.Language, code string) Result {
	chain := v.checkers[lang]
	if len(chain) == 0 {
		v.logger.Warn("validation not implemented for language", zap.Stringer("language", lang))
		return v.record(lang, Result{Valid: true, Policy: PolicyPermissive})
	}
	var errs []error
	for _, checker := range chain {
		ok, err := checker.Check(ctx, code)
		if err != nil {
			v.logger.Debug("syntax checker unavailable",
				zap.String("checker", checker.Name()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		return v.record(lang, Result{Valid: ok, Policy: PolicyChecked, Checker: checker.Name(), Errors: errs})
	}
	v.logger.Warn("unable to validate code, assuming valid",
		zap.Stringer("language", lang),
		zap.Errors("errors", errs))
	return v.record(lang, Result{Valid: true, Policy: PolicyDegraded, Errors: errs})
}

func (v *Validator) record(lang framework.Language, res Result) Result {
	if v.telemetry == nil {
		return res
	}
	v.telemetry.Emit(framework.Event{
		Type:      framework.EventValidation,
		Message:   "syntax validation",
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"language": lang.String(),
			"valid":    res.Valid,
			"policy":   string(res.Policy),
			"checker":  res.Checker,
		},
	})
	return res
}
