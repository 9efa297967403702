// Package corpus reads a directory tree of text documents for indexing.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/internal/indexer/index"
)

// Load reads every regular file under dir. A document id is the file's path
// relative to dir with forward slashes, so files at the top level keep their
// bare names and same-named files in different sub-directories stay
// distinct. Files are read concurrently with at most workers in flight; the
// returned slice is ordered by path so builds are deterministic. Dot-files
// are skipped.
func Load(ctx context.Context, dir string, workers int) ([]index.Document, error) {
	paths, err := list(dir)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	docs := make([]index.Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return fmt.Errorf("naming document %s: %w", path, err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading document %s: %w", path, err)
			}
			docs[i] = index.Document{
				ID:   filepath.ToSlash(rel),
				Text: string(data),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func list(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking documents directory %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
