package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// configTree is a config file decoded without a schema, for dotted-key edits.
type configTree map[string]interface{}

// readConfigTree decodes path as TOML or YAML by extension. A missing file
// is an empty tree.
func readConfigTree(path string) (configTree, error) {
	data := map[string]interface{}{}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	if isTOMLPath(path) {
		_, err = toml.Decode(string(raw), &data)
	} else {
		err = yaml.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

// write persists the tree in the format path's extension selects.
func (t configTree) write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if isTOMLPath(path) {
		if err := toml.NewEncoder(&buf).Encode(map[string]interface{}(t)); err != nil {
			return err
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}(t)); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func isTOMLPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// splitKey turns "cpp.style" into its sections.
func splitKey(key string) ([]string, error) {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid key %q", key)
		}
	}
	return parts, nil
}

// get resolves a dotted key.
func (t configTree) get(parts []string) (interface{}, bool) {
	var node interface{} = map[string]interface{}(t)
	for _, p := range parts {
		section, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if node, ok = section[p]; !ok {
			return nil, false
		}
	}
	return node, true
}

// set stores value under a dotted key, creating sections. A scalar in the
// way is an error rather than being replaced by a section.
func (t configTree) set(parts []string, value interface{}) error {
	section := map[string]interface{}(t)
	for i, p := range parts[:len(parts)-1] {
		switch next := section[p].(type) {
		case map[string]interface{}:
			section = next
		case nil:
			child := map[string]interface{}{}
			section[p] = child
			section = child
		default:
			return fmt.Errorf("%s is a value, not a section", strings.Join(parts[:i+1], "."))
		}
	}
	section[parts[len(parts)-1]] = value
	return nil
}

// parseValue reads CLI input as a bool, integer or float before falling
// back to a string; durations such as "30s" stay strings.
func parseValue(input string) interface{} {
	if b, err := strconv.ParseBool(input); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return f
	}
	return input
}

// renderValue prints sections as YAML and scalars as is.
func renderValue(v interface{}) string {
	switch value := v.(type) {
	case map[string]interface{}, []interface{}:
		out, _ := yaml.Marshal(value)
		return strings.TrimSpace(string(out))
	default:
		return fmt.Sprint(value)
	}
}
