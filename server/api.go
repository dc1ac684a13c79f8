// Package server exposes the coding agent over a small JSON HTTP API so
// editors and scripts can reuse one loaded model.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/framework"
)

// Service is the agent surface the API serves; *agents.Agent implements it.
type Service interface {
	GenerateCode(ctx context.Context, task string, lang framework.Language) (*agents.Artifact, error)
	ExplainCode(ctx context.Context, code string) (string, error)
	RefactorCode(ctx context.Context, code, instructions string, lang framework.Language) (*agents.Artifact, error)
	FormatCode(ctx context.Context, code string, lang framework.Language) string
	ValidateCode(ctx context.Context, code string, lang framework.Language) bool
	Info() map[string]interface{}
}

// ActionRequest is the payload of every POST endpoint. Task is used by
// generate, Code by the others.
type ActionRequest struct {
	Task         string `json:"task,omitempty"`
	Code         string `json:"code,omitempty"`
	Language     string `json:"language,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// ActionResponse carries the result of one request.
type ActionResponse struct {
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Format   string `json:"format,omitempty"`
	Valid    *bool  `json:"valid,omitempty"`
	Error    string `json:"error,omitempty"`
}

// APIServer serves a Service.
type APIServer struct {
	Agent  Service
	Logger *zap.Logger
	// RequestTimeout bounds each model call; zero means five minutes.
	RequestTimeout time.Duration
}

// ServeContext listens on addr until ctx is cancelled.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the API routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/explain", s.handleExplain)
	mux.HandleFunc("POST /api/refactor", s.handleRefactor)
	mux.HandleFunc("POST /api/format", s.handleFormat)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	return mux
}

func (s *APIServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, lang, ok := s.decode(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	artifact, err := s.Agent.GenerateCode(ctx, req.Task, lang)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactResponse(artifact))
}

func (s *APIServer) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, _, ok := s.decode(w, r, false)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	text, err := s.Agent.ExplainCode(ctx, req.Code)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Text: text})
}

func (s *APIServer) handleRefactor(w http.ResponseWriter, r *http.Request) {
	req, lang, ok := s.decode(w, r, false)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	artifact, err := s.Agent.RefactorCode(ctx, req.Code, req.Instructions, lang)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactResponse(artifact))
}

func (s *APIServer) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, lang, ok := s.decode(w, r, true)
	if !ok {
		return
	}
	text := s.Agent.FormatCode(r.Context(), req.Code, lang)
	writeJSON(w, http.StatusOK, ActionResponse{Text: text, Language: lang.String()})
}

func (s *APIServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, lang, ok := s.decode(w, r, true)
	if !ok {
		return
	}
	valid := s.Agent.ValidateCode(r.Context(), req.Code, lang)
	writeJSON(w, http.StatusOK, ActionResponse{Language: lang.String(), Valid: &valid})
}

func (s *APIServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Agent.Info())
}

// decode reads the request body. When needLang is set the language must be
// one the formatter and validator support.
func (s *APIServer) decode(w http.ResponseWriter, r *http.Request, needLang bool) (ActionRequest, framework.Language, bool) {
	var req ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: err.Error()})
		return req, "", false
	}
	lang := framework.ParseLanguage(req.Language)
	if (needLang || req.Language != "") && !lang.Known() {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: fmt.Sprintf("unsupported language %q", req.Language)})
		return req, "", false
	}
	return req, lang, true
}

func (s *APIServer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(ctx, timeout)
}

// fail maps agent errors onto status codes: an oversized prompt is the
// client's fault, anything else from the engine is a bad gateway.
func (s *APIServer) fail(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var windowErr *framework.ContextWindowError
	switch {
	case errors.As(err, &windowErr):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger().Error("request failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, ActionResponse{Error: err.Error()})
}

func (s *APIServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func artifactResponse(a *agents.Artifact) ActionResponse {
	resp := ActionResponse{Text: a.Text, Language: a.Language.String(), Format: string(a.Format)}
	if a.Validation != nil {
		valid := a.Validation.Valid
		resp.Valid = &valid
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
