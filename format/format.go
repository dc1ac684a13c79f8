// Package format runs per-language code formatters. Formatting is best
// effort: the dispatcher absorbs every tool failure and hands back the
// original code.
package format

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/framework"
)

// DefaultCacheTTL is how long formatted output is memoised.
const DefaultCacheTTL = 10 * time.Minute

// Formatter formats code for one language.
type Formatter interface {
	Format(ctx context.Context, code string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(ctx context.Context, code string) (string, error)

// Format calls f.
func (f FormatterFunc) Format(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// Policy names the branch a dispatch took.
type Policy string

const (
	// PolicyFormatted means the language formatter produced the text.
	PolicyFormatted Policy = "formatted"
	// PolicyDegraded means the formatter failed and the input was kept.
	PolicyDegraded Policy = "degraded"
	// PolicyIdentity means no formatter exists for the language.
	PolicyIdentity Policy = "identity"
)

// Result describes one dispatch.
type Result struct {
	Text   string
	Policy Policy
	Cached bool
	Err    error
}

// Formatted reports whether the text came from a formatter.
func (r Result) Formatted() bool { return r.Policy == PolicyFormatted }

// Dispatcher routes code to the formatter for its language.
type Dispatcher struct {
	formatters map[framework.Language]Formatter
	cache      *ttlcache.Cache[string, string]
	logger     *zap.Logger
	telemetry  framework.Telemetry
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for degraded warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTelemetry sets the telemetry sink.
func WithTelemetry(t framework.Telemetry) Option {
	return func(d *Dispatcher) { d.telemetry = t }
}

// WithCacheTTL changes the memoisation window; zero or negative disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl <= 0 {
			d.cache = nil
			return
		}
		d.cache = newCache(ttl)
	}
}

// NewDispatcher returns a dispatcher with no formatters registered.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		formatters: map[framework.Language]Formatter{},
		cache:      newCache(DefaultCacheTTL),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func newCache(ttl time.Duration) *ttlcache.Cache[string, string] {
	return ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
}

// Register installs f for lang, replacing any previous formatter.
func (d *Dispatcher) Register(lang framework.Language, f Formatter) {
	d.formatters[lang] = f
}

// Supports reports whether lang has a formatter; unsupported languages take
// the identity policy.
func (d *Dispatcher) Supports(lang framework.Language) bool {
	_, ok := d.formatters[lang]
	return ok
}

// Format returns the formatted code, or code itself when formatting is not
// possible.
func (d *Dispatcher) Format(ctx context.Context, lang framework.Language, code string) string {
	return d.Dispatch(ctx, lang, code).Text
}

// Dispatch formats code and reports which policy applied.
func (d *Dispatcher) Dispatch(ctx context.Context, lang framework.Language, code string) Result {
	f, ok := d.formatters[lang]
	if !ok {
		d.logger.Warn("formatting not implemented for language", zap.Stringer("language", lang))
		return Result{Text: code, Policy: PolicyIdentity}
	}
	key := cacheKey(lang, code)
	if d.cache != nil {
		if item := d.cache.Get(key); item != nil {
			return Result{Text: item.Value(), Policy: PolicyFormatted, Cached: true}
		}
	}
	formatted, err := f.Format(ctx, code)
	if err != nil {
		d.degraded(lang, err)
		return Result{Text: code, Policy: PolicyDegraded, Err: fmt.Errorf("%w: %v", framework.ErrFormattingDegraded, err)}
	}
	if d.cache != nil {
		d.cache.Set(key, formatted, ttlcache.DefaultTTL)
		// Canonical output formats to itself.
		d.cache.Set(cacheKey(lang, formatted), formatted, ttlcache.DefaultTTL)
	}
	return Result{Text: formatted, Policy: PolicyFormatted}
}

func (d *Dispatcher) degraded(lang framework.Language, err error) {
	d.logger.Warn("failed to format code, returning original",
		zap.Stringer("language", lang),
		zap.Error(err))
	if d.telemetry == nil {
		return
	}
	d.telemetry.Emit(framework.Event{
		Type:      framework.EventFormatDegraded,
		Message:   "formatter degraded",
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"language": lang.String(),
			"error":    err.Error(),
		},
	})
}

func cacheKey(lang framework.Language, code string) string {
	sum := sha256.Sum256([]byte(code))
	return lang.String() + ":" + hex.EncodeToString(sum[:])
}

// toolError turns a runner failure into a descriptive error.
func toolError(tool string, err error, stderr string) error {
	if err == nil {
		return nil
	}
	if framework.ToolUnavailable(err) {
		return fmt.Errorf("%s unavailable: %w", tool, err)
	}
	if stderr != "" {
		return fmt.Errorf("%s exited with status %d: %s", tool, framework.ExitCode(err), clip(stderr, 512))
	}
	return fmt.Errorf("%s exited with status %d: %w", tool, framework.ExitCode(err), err)
}

var errNoRunner = errors.New("command runner missing")

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
