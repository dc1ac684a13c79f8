package validate

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/lexcodex/codeagent/framework"
)

// TreeSitter parses code in-process with a tree-sitter grammar. The code is
// valid iff the syntax tree holds no ERROR or MISSING nodes.
type TreeSitter struct {
	lang    framework.Language
	grammar *sitter.Language
}

// NewTreeSitter returns a parser-backed checker for lang.
func NewTreeSitter(lang framework.Language) (*TreeSitter, error) {
	var grammar *sitter.Language
	switch lang {
	case framework.LanguagePython:
		grammar = python.GetLanguage()
	case framework.LanguageCPP:
		grammar = cpp.GetLanguage()
	case framework.LanguageC:
		grammar = c.GetLanguage()
	default:
		return nil, fmt.Errorf("no tree-sitter grammar for %s", lang)
	}
	return &TreeSitter{lang: lang, grammar: grammar}, nil
}

// Name implements Checker.
func (t *TreeSitter) Name() string { return "tree-sitter-" + t.lang.String() }

// Check implements Checker. Parsers are not safe for concurrent use, so each
// call builds its own.
func (t *TreeSitter) Check(ctx context.Context, code string) (bool, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(t.grammar)
	tree, err := parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		return false, fmt.Errorf("%s: %w", t.Name(), err)
	}
	defer tree.Close()
	return !tree.RootNode().HasError(), nil
}
