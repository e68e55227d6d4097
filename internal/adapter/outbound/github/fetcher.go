// Package github fetches sources from GitHub repositories through the gh
// CLI, which takes care of authentication.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const (
	// maxFiles bounds the files read below one directory URL.
	maxFiles    = 200
	maxFileSize = 2 << 20
)

var skipDirs = map[string]bool{
	"vendor": true, "node_modules": true, "testdata": true, "dist": true, "build": true,
}

// SourceFetcher implements usecase.SourceFetcher for github:// URLs. A URL
// naming a directory yields every recognized file below it.
type SourceFetcher struct {
	ghClient *GHClient
	logger   *slog.Logger
}

// NewSourceFetcher creates a new GitHub source fetcher
func NewSourceFetcher(logger *slog.Logger) *SourceFetcher {
	return &SourceFetcher{
		ghClient: NewGHClient(),
		logger:   logger.With("component", "github_fetcher"),
	}
}

func (f *SourceFetcher) Accepts(cfg usecase.SourceConfig) bool {
	return IsGitHubURL(cfg.URL)
}

func (f *SourceFetcher) Fetch(ctx context.Context, cfg usecase.SourceConfig) ([]domain.Source, error) {
	log := f.logger.With(slog.String("source", cfg.URL))
	loc, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if kind, lang, ok := cfg.Classify(loc.Path); ok {
		log.Info("Fetching file from GitHub")
		data, err := f.ghClient.FetchFile(ctx, loc)
		if err != nil {
			log.Error("Failed to fetch file from GitHub", slog.Any("error", err))
			return nil, fmt.Errorf("failed to fetch file from GitHub: %w", err)
		}
		return []domain.Source{cfg.NewSource(cfg.URL, kind, lang, data)}, nil
	}

	log.Info("Fetching directory from GitHub")
	tree := cfg
	tree.Kind, tree.Format = "", ""
	var out []domain.Source
	queue := []Location{loc}
	for len(queue) > 0 && len(out) < maxFiles {
		dir := queue[0]
		queue = queue[1:]
		entries, err := f.ghClient.List(ctx, dir)
		if err != nil {
			log.Error("Failed to list directory on GitHub", slog.String("path", dir.Path), slog.Any("error", err))
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			switch {
			case e.Type == "dir":
				if !skipDirs[e.Name] && !strings.HasPrefix(e.Name, ".") {
					queue = append(queue, dir.At(e.Path))
				}
				continue
			case e.Type != "file" || e.Size > maxFileSize || len(out) >= maxFiles:
				continue
			}
			kind, lang, ok := tree.Classify(path.Base(e.Path))
			if !ok {
				continue
			}
			fileLoc := dir.At(e.Path)
			data, err := f.ghClient.FetchFile(ctx, fileLoc)
			if err != nil {
				log.Warn("Failed to fetch file from GitHub, skipping", slog.String("path", e.Path), slog.Any("error", err))
				continue
			}
			out = append(out, tree.NewSource(fileLoc.String(), kind, lang, data))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no recognized files at %s", cfg.URL)
	}
	log.Info("Fetched directory from GitHub", slog.Int("file_count", len(out)))
	return out, nil
}

// LoadGitHubConfig loads a configuration file from GitHub
func LoadGitHubConfig(ctx context.Context, githubURL string) ([]byte, error) {
	loc, err := ParseURL(githubURL)
	if err != nil {
		return nil, err
	}
	content, err := NewGHClient().FetchFile(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config from GitHub: %w", err)
	}
	return content, nil
}
