// Package filesource reads sources from the local file system.
package filesource

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// DefaultMaxFileSize bounds the files read from a directory tree.
const DefaultMaxFileSize = 2 << 20

var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"vendor": true, "node_modules": true, "bower_components": true,
	"__pycache__": true, ".venv": true, "venv": true, ".tox": true,
	"target": true, "build": true, "dist": true,
}

// SourceFetcher implements usecase.SourceFetcher for files and directory
// trees.
type SourceFetcher struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewSourceFetcher creates a file fetcher. maxFileSize <= 0 selects
// DefaultMaxFileSize.
func NewSourceFetcher(maxFileSize int64, logger *slog.Logger) *SourceFetcher {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &SourceFetcher{
		maxFileSize: maxFileSize,
		logger:      logger.With("component", "file_fetcher"),
	}
}

// Accepts takes every location that is not a URL.
func (f *SourceFetcher) Accepts(cfg usecase.SourceConfig) bool {
	return cfg.URL != "" && !strings.Contains(cfg.URL, "://")
}

// Fetch reads one file, or every recognized file below a directory. In a
// directory the file extension alone decides the kind, and no format hint
// is passed on.
func (f *SourceFetcher) Fetch(ctx context.Context, cfg usecase.SourceConfig) ([]domain.Source, error) {
	log := f.logger.With(slog.String("source", cfg.URL))
	path := strings.TrimPrefix(cfg.URL, "file:")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		kind, lang, ok := cfg.Classify(path)
		if !ok {
			return nil, fmt.Errorf("cannot tell what kind of source %s is; set its type", path)
		}
		if info.Size() > f.maxFileSize {
			return nil, fmt.Errorf("file %s is %d bytes, above the %d byte limit", path, info.Size(), f.maxFileSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return []domain.Source{cfg.NewSource(path, kind, lang, data)}, nil
	}

	tree := cfg
	tree.Kind, tree.Format = "", ""
	var out []domain.Source
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		kind, lang, ok := tree.Classify(p)
		if !ok {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > f.maxFileSize {
			log.Debug("Skipping oversized file", slog.String("file", p), slog.Int64("size", fi.Size()))
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		out = append(out, tree.NewSource(p, kind, lang, data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}
	log.Info("Read directory tree", slog.Int("file_count", len(out)))
	return out, nil
}
