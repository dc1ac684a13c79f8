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

	"github.com/lexcodex/codeagent/framework"
)

// DefaultOpenAIEndpoint is the usual address of a local vLLM or llama.cpp
// server.
const DefaultOpenAIEndpoint = "http://localhost:8000/v1"

// OpenAI loads models from an OpenAI-compatible completions server.
type OpenAI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAI creates an engine for baseURL, which includes the /v1 prefix.
func NewOpenAI(baseURL, apiKey string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIEndpoint
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 3 * time.Minute},
	}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type completionsRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	Echo        bool    `json:"echo"`
}

type completionsResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Load implements Engine. The model id defaults to the model path, which is
// how vLLM names models it serves from disk.
func (o *OpenAI) Load(ctx context.Context, modelPath string, opts LoadOptions) (Handle, error) {
	if err := checkModelPath(modelPath); err != nil {
		return nil, err
	}
	model := opts.Model
	if model == "" {
		model = modelPath
	}
	var models modelsResponse
	if err := o.do(ctx, http.MethodGet, "/models", nil, &models); err != nil {
		return nil, &framework.ModelLoadError{Path: modelPath, Err: err}
	}
	for _, m := range models.Data {
		if m.ID == model {
			return &openAIHandle{engine: o, model: model}, nil
		}
	}
	return nil, &framework.ModelLoadError{Path: modelPath, Err: fmt.Errorf("model %q not served", model)}
}

type openAIHandle struct {
	engine *OpenAI
	model  string
}

// Complete requests an echoed completion. Servers that ignore echo get the
// prompt prepended.
func (h *openAIHandle) Complete(ctx context.Context, prompt string, params framework.SamplingParams) (string, error) {
	reqBody := completionsRequest{
		Model:       h.model,
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Echo:        true,
	}
	var result completionsResponse
	if err := h.engine.do(ctx, http.MethodPost, "/completions", reqBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return echoed(prompt, result.Choices[0].Text), nil
}

func (h *openAIHandle) Close() error { return nil }

func (o *OpenAI) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, body)
	if err != nil {
		return err
	}
	o.setHeaders(httpReq)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("openai", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w (body: %s)", err, truncate(string(data), 512))
	}
	return nil
}

func (o *OpenAI) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}
