package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/format"
	"github.com/lexcodex/codeagent/framework"
)

type stubService struct {
	err     error
	lastReq string
}

func (s *stubService) GenerateCode(ctx context.Context, task string, lang framework.Language) (*agents.Artifact, error) {
	s.lastReq = task
	if s.err != nil {
		return nil, s.err
	}
	return &agents.Artifact{Text: "print(1)\n", Language: lang, Format: format.PolicyFormatted}, nil
}

func (s *stubService) ExplainCode(ctx context.Context, code string) (string, error) {
	s.lastReq = code
	return "explained", s.err
}

func (s *stubService) RefactorCode(ctx context.Context, code, instructions string, lang framework.Language) (*agents.Artifact, error) {
	s.lastReq = instructions
	return &agents.Artifact{Text: code, Language: lang, Format: format.PolicyIdentity}, s.err
}

func (s *stubService) FormatCode(ctx context.Context, code string, lang framework.Language) string {
	return code + "\n"
}

func (s *stubService) ValidateCode(ctx context.Context, code string, lang framework.Language) bool {
	return code != "bad"
}

func (s *stubService) Info() map[string]interface{} {
	return map[string]interface{}{"model_path": "/models/qwen"}
}

func post(t *testing.T, h http.Handler, path string, body interface{}) (*httptest.ResponseRecorder, ActionResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestAPIServerGenerate(t *testing.T) {
	svc := &stubService{}
	api := &APIServer{Agent: svc}
	rec, resp := post(t, api.Handler(), "/api/generate", ActionRequest{Task: "print one", Language: "py"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "print(1)\n", resp.Text)
	assert.Equal(t, "python", resp.Language)
	assert.Equal(t, "formatted", resp.Format)
	assert.Equal(t, "print one", svc.lastReq)
}

func TestAPIServerRejectsUnknownLanguage(t *testing.T) {
	api := &APIServer{Agent: &stubService{}}
	rec, resp := post(t, api.Handler(), "/api/generate", ActionRequest{Task: "x", Language: "rust"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "unsupported language")

	rec, _ = post(t, api.Handler(), "/api/generate", ActionRequest{Task: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIServerRefactorWithoutLanguage(t *testing.T) {
	svc := &stubService{}
	api := &APIServer{Agent: svc}
	rec, resp := post(t, api.Handler(), "/api/refactor", ActionRequest{Code: "x = 1", Instructions: "rename"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x = 1", resp.Text)
	assert.Equal(t, "unknown", resp.Language)
	assert.Equal(t, "rename", svc.lastReq)
}

func TestAPIServerErrorStatus(t *testing.T) {
	windowErr := &framework.GenerationError{
		Action: framework.ActionExplain,
		Err:    &framework.ContextWindowError{Estimated: 20, Limit: 10},
	}
	api := &APIServer{Agent: &stubService{err: windowErr}}
	rec, resp := post(t, api.Handler(), "/api/explain", ActionRequest{Code: "x"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.NotEmpty(t, resp.Error)

	api = &APIServer{Agent: &stubService{err: &framework.GenerationError{Action: framework.ActionGenerate, Err: assert.AnError}}}
	rec, _ = post(t, api.Handler(), "/api/generate", ActionRequest{Task: "x", Language: "cpp"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPIServerFormatValidateInfo(t *testing.T) {
	api := &APIServer{Agent: &stubService{}}
	h := api.Handler()

	_, resp := post(t, h, "/api/format", ActionRequest{Code: "int x;", Language: "c"})
	assert.Equal(t, "int x;\n", resp.Text)

	_, resp = post(t, h, "/api/validate", ActionRequest{Code: "bad", Language: "cpp"})
	require.NotNil(t, resp.Valid)
	assert.False(t, *resp.Valid)

	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/models/qwen")

	req = httptest.NewRequest(http.MethodGet, "/api/generate", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
