package validate

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lexcodex/codeagent/framework"
)

// FileResult is the validation outcome for one file.
type FileResult struct {
	Path     string
	Language framework.Language
	Result
}

// ValidateFiles checks every file concurrently, at most limit at a time.
// Results keep the order of paths. The language comes from the extension
// unless lang is known.
func ValidateFiles(ctx context.Context, v *Validator, paths []string, lang framework.Language, limit int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			fileLang := lang
			if !fileLang.Known() {
				fileLang = framework.LanguageFromFile(path)
			}
			results[i] = FileResult{
				Path:     path,
				Language: fileLang,
				Result:   v.Check(ctx, fileLang, string(data)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
