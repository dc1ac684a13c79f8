package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/framework"
)

// DefaultOllamaEndpoint is where a local Ollama server listens.
const DefaultOllamaEndpoint = "http://localhost:11434"

// Ollama loads models served by an Ollama instance.
type Ollama struct {
	Endpoint string
	Logger   *zap.Logger
	Debug    bool
	client   *http.Client
}

type ollamaResponse struct {
	Response        string `json:"response"`
	DoneReason      string `json:"done_reason"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
}

// NewOllama builds a new Ollama engine.
func NewOllama(endpoint string) *Ollama {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	return &Ollama{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Logger:   zap.NewNop(),
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Load implements Engine. The model path must exist; the served model name
// defaults to its base name and must be known to the server.
func (o *Ollama) Load(ctx context.Context, modelPath string, opts LoadOptions) (Handle, error) {
	if err := checkModelPath(modelPath); err != nil {
		return nil, err
	}
	model := servedName(modelPath, opts)
	var info map[string]interface{}
	if err := o.post(ctx, "/api/show", map[string]interface{}{"model": model}, &info); err != nil {
		return nil, &framework.ModelLoadError{Path: modelPath, Err: err}
	}
	o.logger().Debug("ollama model ready", zap.String("model", model), zap.Bool("trust_remote_code", opts.TrustRemoteCode))
	return &ollamaHandle{engine: o, model: model}, nil
}

type ollamaHandle struct {
	engine *Ollama
	model  string
}

// Complete sends the composed prompt verbatim. Ollama never echoes, so the
// prompt is prepended to the decoded response.
func (h *ollamaHandle) Complete(ctx context.Context, prompt string, params framework.SamplingParams) (string, error) {
	payload := map[string]interface{}{
		"model":   h.model,
		"prompt":  prompt,
		"raw":     true,
		"stream":  false,
		"options": ollamaOptions(params),
	}
	var raw ollamaResponse
	if err := h.engine.post(ctx, "/api/generate", payload, &raw); err != nil {
		return "", err
	}
	h.engine.logger().Debug("ollama completion",
		zap.String("model", h.model),
		zap.String("done_reason", raw.DoneReason),
		zap.Int("prompt_tokens", raw.PromptEvalCount),
		zap.Int("completion_tokens", raw.EvalCount))
	return prompt + raw.Response, nil
}

func (h *ollamaHandle) Close() error { return nil }

// SetDebugLogging enables or disables verbose logging for requests/responses.
func (o *Ollama) SetDebugLogging(enabled bool) {
	o.Debug = enabled
}

func (o *Ollama) getHTTPClient() *http.Client {
	if o.client != nil {
		return o.client
	}
	o.client = &http.Client{Timeout: 60 * time.Second}
	return o.client
}

func (o *Ollama) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func ollamaOptions(params framework.SamplingParams) map[string]interface{} {
	options := map[string]interface{}{}
	if params.MaxTokens != 0 {
		options["num_predict"] = params.MaxTokens
	}
	if params.Temperature != 0 {
		options["temperature"] = params.Temperature
	}
	if params.TopP != 0 {
		options["top_p"] = params.TopP
	}
	return options
}

func (o *Ollama) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	o.logPayload(path, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.getHTTPClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("ollama", resp)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	o.logResponse(path, responseBody)
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// statusError reads a bounded error body from a non-2xx response.
func statusError(server string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(msg))
	if detail != "" {
		return fmt.Errorf("%s error: %s: %s", server, resp.Status, detail)
	}
	return fmt.Errorf("%s error: %s", server, resp.Status)
}

func (o *Ollama) logPayload(path string, payload []byte) {
	if !o.Debug {
		return
	}
	o.logger().Debug("ollama request", zap.String("path", path), zap.String("payload", truncate(string(payload), 2048)))
}

func (o *Ollama) logResponse(path string, resp []byte) {
	if !o.Debug {
		return
	}
	o.logger().Debug("ollama response", zap.String("path", path), zap.String("payload", truncate(string(resp), 2048)))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
