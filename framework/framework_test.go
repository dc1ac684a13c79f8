package framework

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"python": LanguagePython,
		" PY ":   LanguagePython,
		"c++":    LanguageCPP,
		"cpp":    LanguageCPP,
		"c":      LanguageC,
		"rust":   LanguageUnknown,
		"":       LanguageUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseLanguage(raw), raw)
	}
	assert.Equal(t, LanguageCPP, LanguageFromFile("src/main.cc"))
	assert.Equal(t, LanguageFromFile("include/util.h"), ParseLanguage("h"))
	assert.Equal(t, LanguageCPP, ParseLanguage("h"))
	assert.Equal(t, LanguagePython, LanguageFromFile("tool.PY"))
	assert.False(t, LanguageFromFile("README.md").Known())
	assert.Equal(t, ".cpp", LanguageCPP.Extension())
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction("refactor")
	require.NoError(t, err)
	assert.Equal(t, ActionRefactor, action)
	_, err = ParseAction("summarize")
	assert.Error(t, err)
}

func TestSamplingMerge(t *testing.T) {
	base := SamplingParams{MaxTokens: 4096, Temperature: 0.7, TopP: 0.95}
	merged := base.Merge(SamplingParams{MaxTokens: 256})
	assert.Equal(t, SamplingParams{MaxTokens: 256, Temperature: 0.7, TopP: 0.95}, merged)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("hello world!"))
	assert.Equal(t, 2, EstimateTokens("f(x);"))
}

func TestParseCommandLine(t *testing.T) {
	args, err := ParseCommandLine(`clang-format --style="{BasedOnStyle: llvm}"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"clang-format", "--style={BasedOnStyle: llvm}"}, args)

	args, err = ParseCommandLine("  ", "black")
	require.NoError(t, err)
	assert.Equal(t, []string{"black"}, args)

	_, err = ParseCommandLine(`black "unterminated`)
	assert.Error(t, err)
}

func TestLocalCommandRunner(t *testing.T) {
	runner := NewLocalCommandRunner(0)
	assert.Equal(t, DefaultCommandTimeout, runner.DefaultTimeout)
	ctx := context.Background()

	out, _, err := runner.Run(ctx, CommandRequest{Args: []string{"cat"}, Input: "x = 1\n"})
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", out)

	_, _, err = runner.Run(ctx, CommandRequest{Args: []string{"sh", "-c", "echo oops >&2; exit 3"}})
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.False(t, ToolUnavailable(err))

	_, _, err = runner.Run(ctx, CommandRequest{Args: []string{"codeagent-no-such-tool"}})
	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.True(t, ToolUnavailable(err))
	assert.Equal(t, -1, ExitCode(err))

	_, _, err = runner.Run(ctx, CommandRequest{Args: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, ErrCommandTimeout)
	assert.True(t, ToolUnavailable(err))

	_, _, err = runner.Run(ctx, CommandRequest{})
	assert.Error(t, err)
}

func TestExitError(t *testing.T) {
	err := error(&ExitError{Code: 2})
	assert.Equal(t, 2, ExitCode(err))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, "exit status 2", err.Error())
}

func TestTelemetrySinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	file, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)
	rec := &RecordingTelemetry{}
	sink := MultiplexTelemetry{Sinks: []Telemetry{rec, nil, file}}

	sink.Emit(Event{Type: EventActionStart, RequestID: "r1", Timestamp: time.Now()})
	sink.Emit(Event{Type: EventActionFinish, RequestID: "r1", Metadata: map[string]interface{}{"duration_ms": 3}})
	require.NoError(t, file.Close())
	require.NoError(t, file.Close())

	assert.Len(t, rec.Events(), 2)
	assert.Len(t, rec.OfType(EventActionFinish), 1)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "r1", lines[1].RequestID)
	assert.Equal(t, float64(3), lines[1].Metadata["duration_ms"])
}

func TestRequestContext(t *testing.T) {
	_, ok := RequestContextFrom(context.Background())
	assert.False(t, ok)
	ctx := WithRequestContext(context.Background(), RequestContext{ID: "abc", Action: ActionExplain})
	rc, ok := RequestContextFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", rc.ID)
}

func TestErrorsUnwrap(t *testing.T) {
	inner := errors.New("no such file")
	err := &GenerationError{Action: ActionGenerate, Err: &ModelLoadError{Path: "/m", Err: inner}}
	assert.ErrorIs(t, err, inner)
	var loadErr *ModelLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.Contains(t, (&ContextWindowError{Estimated: 11, Limit: 10}).Error(), "10")
}
