package format

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lexcodex/codeagent/framework"
)

// FileResult is the formatting outcome for one file.
type FileResult struct {
	Path     string
	Language framework.Language
	Result
}

// FormatFiles formats every file concurrently, at most limit at a time, and
// returns results in path order. Files are not rewritten unless write is
// set, and then only when the text changed.
func FormatFiles(ctx context.Context, d *Dispatcher, paths []string, lang framework.Language, limit int, write bool) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		g.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			fileLang := lang
			if !fileLang.Known() {
				fileLang = framework.LanguageFromFile(path)
			}
			res := d.Dispatch(ctx, fileLang, string(data))
			if write && res.Formatted() && res.Text != string(data) {
				if err := os.WriteFile(path, []byte(res.Text), info.Mode().Perm()); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			}
			results[i] = FileResult{Path: path, Language: fileLang, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
