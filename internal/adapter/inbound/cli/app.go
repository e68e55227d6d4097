package cli

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i2y/apiforge/configs"
	"github.com/i2y/apiforge/internal/adapter/outbound/boltrepo"
	"github.com/i2y/apiforge/internal/adapter/outbound/docs"
	"github.com/i2y/apiforge/internal/adapter/outbound/filesource"
	"github.com/i2y/apiforge/internal/adapter/outbound/github"
	"github.com/i2y/apiforge/internal/adapter/outbound/goast"
	grpcsource "github.com/i2y/apiforge/internal/adapter/outbound/grpc"
	"github.com/i2y/apiforge/internal/adapter/outbound/httpsource"
	"github.com/i2y/apiforge/internal/adapter/outbound/memrepo"
	"github.com/i2y/apiforge/internal/adapter/outbound/patterns"
	"github.com/i2y/apiforge/internal/adapter/outbound/proto"
	"github.com/i2y/apiforge/internal/adapter/outbound/specformat"
	"github.com/i2y/apiforge/internal/adapter/outbound/toolgen"
	"github.com/i2y/apiforge/internal/usecase"
)

// app carries what every command shares once configuration is loaded.
type app struct {
	cfg    *configs.Config
	logger *slog.Logger
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.HTTPClientTimeout}
}

// fetchers are tried in order; filesource takes anything without a scheme.
func (a *app) fetchers() []usecase.SourceFetcher {
	return []usecase.SourceFetcher{
		grpcsource.NewSourceFetcher(a.logger),
		github.NewSourceFetcher(a.logger),
		httpsource.NewSourceFetcher(a.httpClient(), httpsource.Options{
			RequestsPerSecond: a.cfg.FetchRate,
			Burst:             a.cfg.FetchBurst,
		}, a.logger),
		filesource.NewSourceFetcher(a.cfg.MaxFileSize, a.logger),
	}
}

// extractors are tried in order; goast must come before patterns so Go
// code gets the structural extractor.
func (a *app) extractors() []usecase.Extractor {
	return []usecase.Extractor{
		specformat.NewExtractor(a.logger),
		proto.NewExtractor(a.logger),
		goast.NewExtractor(a.logger),
		patterns.NewExtractor(a.logger),
		docs.NewExtractor(a.logger),
	}
}

func (a *app) discoverUseCase(sources []usecase.SourceConfig, repo usecase.ToolRepository, publisher usecase.ToolPublisher) (*usecase.DiscoverUseCase, error) {
	return usecase.NewDiscoverUseCase(
		a.fetchers(),
		a.extractors(),
		toolgen.NewGenerator(a.logger),
		repo,
		publisher,
		usecase.DiscoverConfig{
			Sources:        sources,
			MaxConcurrency: a.cfg.MaxConcurrency,
			SourceTimeout:  a.cfg.SourceTimeout,
			Policy:         usecase.MergePolicy{FailOnSourceError: a.cfg.Strict},
			Extract:        usecase.DefaultExtractOptions(),
		},
		a.logger,
	)
}

// repository opens the configured tool store. The returned close function
// is never nil.
func (a *app) repository() (usecase.ToolRepository, func() error, error) {
	switch a.cfg.Repository {
	case "", "memory":
		return memrepo.NewInMemoryToolRepository(a.logger), func() error { return nil }, nil
	case "bolt":
		repo, err := boltrepo.Open(a.cfg.BoltPath, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
	return nil, nil, newUsageError(fmt.Sprintf("unknown repository %q (want memory or bolt)", a.cfg.Repository))
}
