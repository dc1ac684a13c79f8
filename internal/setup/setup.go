// Package setup inspects the environment codeagent depends on: the
// inference server, the external formatter and checker tools, and the
// source files present in the workspace.
package setup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lexcodex/codeagent/framework"
	"github.com/lexcodex/codeagent/llm"
)

// Tool names an external command and what codeagent uses it for.
type Tool struct {
	Role    string
	Command []string
}

// ToolStatus records whether a tool's executable resolves on PATH.
type ToolStatus struct {
	Role      string   `json:"role"`
	Command   []string `json:"command"`
	Path      string   `json:"path,omitempty"`
	Available bool     `json:"available"`
}

// EngineStatus is a snapshot of the inference server.
type EngineStatus struct {
	Kind      string   `json:"kind"`
	Endpoint  string   `json:"endpoint"`
	Reachable bool     `json:"reachable"`
	Models    []string `json:"models"`
	LastError string   `json:"last_error,omitempty"`
}

// Report captures the detected environment.
type Report struct {
	Workspace string         `json:"workspace"`
	CheckedAt time.Time      `json:"checked_at"`
	Engine    EngineStatus   `json:"engine"`
	Tools     []ToolStatus   `json:"tools"`
	Sources   map[string]int `json:"sources"`
}

// Options drives Detect. Client and LookPath default to net/http and
// exec.LookPath.
type Options struct {
	Workspace  string
	EngineKind llm.Kind
	Endpoint   string
	Tools      []Tool
	Client     *http.Client
	LookPath   func(string) (string, error)
}

// Ready reports whether the engine answered and every tool resolved.
func (r *Report) Ready() bool {
	if r == nil || !r.Engine.Reachable {
		return false
	}
	for _, t := range r.Tools {
		if !t.Available {
			return false
		}
	}
	return true
}

// Detect builds a Report. Probe failures are recorded in the report; only
// an unreadable workspace is returned as an error.
func Detect(ctx context.Context, opts Options) (*Report, error) {
	sources, err := scanSources(opts.Workspace)
	if err != nil {
		return nil, err
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	statuses := make([]ToolStatus, 0, len(opts.Tools))
	for _, tool := range opts.Tools {
		status := ToolStatus{Role: tool.Role, Command: tool.Command}
		if len(tool.Command) > 0 {
			if path, err := lookPath(tool.Command[0]); err == nil {
				status.Path = path
				status.Available = true
			}
		}
		statuses = append(statuses, status)
	}
	return &Report{
		Workspace: opts.Workspace,
		CheckedAt: time.Now(),
		Engine:    probeEngine(ctx, opts),
		Tools:     statuses,
		Sources:   sources,
	}, nil
}

func probeEngine(ctx context.Context, opts Options) EngineStatus {
	kind := opts.EngineKind
	if kind == "" {
		kind = llm.KindOllama
	}
	endpoint := opts.Endpoint
	status := EngineStatus{Kind: string(kind)}
	var url string
	switch kind {
	case llm.KindOllama:
		if endpoint == "" {
			endpoint = llm.DefaultOllamaEndpoint
		}
		url = strings.TrimSuffix(endpoint, "/") + "/api/tags"
	case llm.KindOpenAI:
		if endpoint == "" {
			endpoint = llm.DefaultOpenAIEndpoint
		}
		url = strings.TrimSuffix(endpoint, "/") + "/models"
	default:
		status.Endpoint = endpoint
		status.LastError = fmt.Sprintf("unknown engine kind %q", kind)
		return status
	}
	status.Endpoint = endpoint

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	models, err := fetchModels(ctx, client, url, kind)
	if err != nil {
		status.LastError = err.Error()
		return status
	}
	status.Reachable = true
	status.Models = models
	return status
}

func fetchModels(ctx context.Context, client *http.Client, url string, kind llm.Kind) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.New(resp.Status)
	}
	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	var models []string
	if kind == llm.KindOllama {
		for _, m := range payload.Models {
			if m.Name != "" {
				models = append(models, m.Name)
			}
		}
	} else {
		for _, m := range payload.Data {
			if m.ID != "" {
				models = append(models, m.ID)
			}
		}
	}
	sort.Strings(models)
	return models, nil
}

var skipDirs = map[string]bool{
	".git":          true,
	".idea":         true,
	".vscode":       true,
	"node_modules":  true,
	"vendor":        true,
	"__pycache__":   true,
	".venv":         true,
	"codeagent_cfg": true,
}

// scanSources counts workspace files per supported language.
func scanSources(workspace string) (map[string]int, error) {
	counts := map[string]int{}
	if workspace == "" {
		workspace = "."
	}
	info, err := os.Stat(workspace)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return counts, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return counts, nil
	}
	err = filepath.WalkDir(workspace, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != workspace && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if lang := framework.LanguageFromFile(d.Name()); lang.Known() {
			counts[lang.String()]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
