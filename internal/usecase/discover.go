package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/i2y/apiforge/internal/domain"
)

const instrumentationName = "github.com/i2y/apiforge/internal/usecase"

// ToolPublisher exposes a generated tool set to clients.
type ToolPublisher interface {
	Publish(ctx context.Context, defs []domain.ToolDefinition) error
}

// DiscoverConfig tunes a DiscoverUseCase.
type DiscoverConfig struct {
	// Sources are re-run by ExecuteConfigured.
	Sources        []SourceConfig
	MaxConcurrency int
	SourceTimeout  time.Duration
	Policy         MergePolicy
	Extract        ExtractOptions
}

// DiscoveryReport summarizes one discovery run.
type DiscoveryReport struct {
	RunID            string
	SourceCount      int
	Endpoints        []domain.Endpoint
	Tools            []domain.ToolDefinition
	Auth             *domain.AuthInfo
	Failures         []SourceFailure
	GenerationErrors []error
	Duplicates       int
	Skipped          int
}

// DiscoverUseCase orchestrates fetching sources, extracting endpoints,
// merging them, and generating, storing and publishing tools.
type DiscoverUseCase struct {
	fetchers   []SourceFetcher
	extractors []Extractor
	generator  ToolGenerator
	repository ToolRepository
	publisher  ToolPublisher
	cfg        DiscoverConfig
	logger     *slog.Logger

	tracer          trace.Tracer
	endpointCounter metric.Int64Counter
	failureCounter  metric.Int64Counter
	toolCounter     metric.Int64Counter
}

// NewDiscoverUseCase creates a DiscoverUseCase. Fetchers and extractors are
// tried in the given order; the first one accepting a source handles it.
// publisher may be nil.
func NewDiscoverUseCase(
	fetchers []SourceFetcher,
	extractors []Extractor,
	generator ToolGenerator,
	repository ToolRepository,
	publisher ToolPublisher,
	cfg DiscoverConfig,
	logger *slog.Logger,
) (*DiscoverUseCase, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	meter := otel.Meter(instrumentationName)
	endpointCounter, err := meter.Int64Counter("apiforge.endpoints.discovered",
		metric.WithDescription("Endpoints kept after merge"))
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint counter: %w", err)
	}
	failureCounter, err := meter.Int64Counter("apiforge.sources.failed",
		metric.WithDescription("Sources that failed to fetch or extract"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}
	toolCounter, err := meter.Int64Counter("apiforge.tools.generated",
		metric.WithDescription("Tool definitions generated"))
	if err != nil {
		return nil, fmt.Errorf("failed to create tool counter: %w", err)
	}
	return &DiscoverUseCase{
		fetchers:        fetchers,
		extractors:      extractors,
		generator:       generator,
		repository:      repository,
		publisher:       publisher,
		cfg:             cfg,
		logger:          logger.With("usecase", "Discover"),
		tracer:          otel.Tracer(instrumentationName),
		endpointCounter: endpointCounter,
		failureCounter:  failureCounter,
		toolCounter:     toolCounter,
	}, nil
}

// ExecuteConfigured runs Execute over the configured sources.
func (uc *DiscoverUseCase) ExecuteConfigured(ctx context.Context) (*DiscoveryReport, error) {
	if len(uc.cfg.Sources) == 0 {
		return nil, ErrNoSourcesFound
	}
	return uc.Execute(ctx, uc.cfg.Sources)
}

// Execute performs a full discovery run over sources. Per-source failures
// are reported and skipped unless the merge policy makes them fatal;
// endpoints that cannot become tools are skipped one by one.
func (uc *DiscoverUseCase) Execute(ctx context.Context, sources []SourceConfig) (*DiscoveryReport, error) {
	ctx, span := uc.tracer.Start(ctx, "Discover", trace.WithAttributes(attribute.Int("apiforge.sources", len(sources))))
	defer span.End()

	outcome, run, err := uc.Extract(ctx, sources)
	report := &DiscoveryReport{
		RunID:       run.ID.String(),
		SourceCount: run.SeenCount(),
		Endpoints:   outcome.Endpoints,
		Auth:        outcome.Auth,
		Failures:    outcome.Failures,
		Duplicates:  outcome.Duplicates,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		return report, err
	}
	log := run.Logger

	defs := make([]domain.ToolDefinition, 0, len(outcome.Endpoints))
	for _, ep := range outcome.Endpoints {
		def, genErr := uc.generator.Generate(ep)
		if genErr != nil {
			log.Warn("Skipping endpoint", slog.String("endpoint", ep.Key().String()), slog.Any("error", genErr))
			report.GenerationErrors = append(report.GenerationErrors, genErr)
			report.Skipped++
			continue
		}
		defs = append(defs, def)
	}
	defs = domain.UniqueToolNames(defs)
	report.Tools = defs
	uc.toolCounter.Add(ctx, int64(len(defs)))

	log.Info("Saving tools to repository", slog.Int("tool_count", len(defs)))
	if err := uc.repository.Save(ctx, defs); err != nil {
		log.Error("Failed to save generated tools", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return report, fmt.Errorf("failed to save generated tools: %w", err)
	}

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, defs); err != nil {
			log.Error("Failed to publish tools", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
			return report, fmt.Errorf("failed to publish tools: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("apiforge.endpoints", len(outcome.Endpoints)),
		attribute.Int("apiforge.tools", len(defs)),
	)
	log.Info("Discovery run finished",
		slog.Int("endpoint_count", len(outcome.Endpoints)),
		slog.Int("tool_count", len(defs)),
		slog.Int("failed_sources", len(outcome.Failures)),
		slog.Int("skipped_endpoints", report.Skipped),
		slog.Duration("elapsed", time.Since(run.StartedAt)))
	return report, nil
}

// Extract fetches and extracts every source in parallel and merges the
// results. The returned RunContext is never nil.
func (uc *DiscoverUseCase) Extract(ctx context.Context, sources []SourceConfig) (MergeOutcome, *RunContext, error) {
	run := NewRunContext(uc.logger, uc.cfg.Extract, len(sources))
	log := run.Logger
	log.Info("Starting discovery run", slog.Int("source_count", len(sources)))

	fetched, fetchFailures := uc.fetchAll(ctx, run, sources)

	// Flatten in configuration order and drop inputs already seen this run.
	var inputs []domain.Source
	for _, group := range fetched {
		for _, src := range group {
			if run.MarkSeen(src) {
				log.Debug("Skipping duplicate source", slog.String("source", src.Origin))
				continue
			}
			inputs = append(inputs, src)
		}
	}

	results := append(fetchFailures, uc.extractAll(ctx, run, inputs)...)
	outcome, err := Merge(results, uc.cfg.Policy)

	uc.endpointCounter.Add(ctx, int64(len(outcome.Endpoints)))
	uc.failureCounter.Add(ctx, int64(len(outcome.Failures)))
	for _, f := range outcome.Failures {
		log.Warn("Source failed", slog.String("source", f.Source), slog.String("extractor", f.Extractor), slog.Any("error", f.Err))
	}
	if err != nil {
		log.Error("Discovery aborted by failed sources", slog.Int("failed_sources", len(outcome.Failures)))
		return outcome, run, err
	}
	log.Info("Merged extraction results",
		slog.Int("endpoint_count", len(outcome.Endpoints)),
		slog.Int("duplicates", outcome.Duplicates),
		slog.Int("no_match", len(outcome.NoMatches)))
	return outcome, run, nil
}

// fetchAll fetches every configured source concurrently. Each goroutine
// writes only its own slot.
func (uc *DiscoverUseCase) fetchAll(ctx context.Context, run *RunContext, sources []SourceConfig) ([][]domain.Source, []domain.ExtractionResult) {
	slots := make([][]domain.Source, len(sources))
	failures := make([]*domain.ExtractionResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.MaxConcurrency)
	for i, sc := range sources {
		g.Go(func() error {
			fctx, cancel := uc.sourceContext(gctx)
			defer cancel()

			fetcher := uc.fetcherFor(sc)
			if fetcher == nil {
				r := domain.Failed(sc.URL, "fetch", domain.TierDocument, fmt.Errorf("%s: %w", sc.URL, ErrNoFetcher))
				failures[i] = &r
				return nil
			}
			srcs, err := fetcher.Fetch(fctx, sc)
			if err != nil {
				r := domain.Failed(sc.URL, "fetch", domain.TierDocument, err)
				failures[i] = &r
				return nil
			}
			run.Logger.Debug("Fetched source", slog.String("source", sc.URL), slog.Int("inputs", len(srcs)))
			slots[i] = srcs
			return nil
		})
	}
	_ = g.Wait() // goroutines report through their slots

	var out []domain.ExtractionResult
	for _, f := range failures {
		if f != nil {
			out = append(out, *f)
		}
	}
	return slots, out
}

// extractAll runs the first accepting extractor on every input
// concurrently and returns the results in input order.
func (uc *DiscoverUseCase) extractAll(ctx context.Context, run *RunContext, inputs []domain.Source) []domain.ExtractionResult {
	results := make([]domain.ExtractionResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.MaxConcurrency)
	for i, src := range inputs {
		g.Go(func() error {
			ex := uc.extractorFor(src)
			if ex == nil {
				run.Logger.Debug("No extractor accepts source", slog.String("source", src.Origin), slog.String("kind", string(src.Kind)))
				results[i] = domain.NoMatch(src.Origin, "none", domain.TierDocument)
				return nil
			}
			ectx, cancel := uc.sourceContext(gctx)
			defer cancel()
			_, span := uc.tracer.Start(ectx, "Extract", trace.WithAttributes(
				attribute.String("apiforge.source", src.Origin),
				attribute.String("apiforge.extractor", ex.Name()),
			))
			r := ex.Extract(ectx, run, src)
			if r.Source == "" {
				r.Source = src.Origin
			}
			if r.BaseURL == "" {
				r.BaseURL = src.BaseURL
			}
			if r.Status == domain.StatusFailed {
				span.RecordError(r.Err)
				span.SetStatus(codes.Error, "extraction failed")
			}
			span.SetAttributes(attribute.Int("apiforge.endpoints", len(r.Endpoints)))
			span.End()
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (uc *DiscoverUseCase) sourceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.cfg.SourceTimeout > 0 {
		return context.WithTimeout(ctx, uc.cfg.SourceTimeout)
	}
	return context.WithCancel(ctx)
}

func (uc *DiscoverUseCase) fetcherFor(sc SourceConfig) SourceFetcher {
	for _, f := range uc.fetchers {
		if f.Accepts(sc) {
			return f
		}
	}
	return nil
}

func (uc *DiscoverUseCase) extractorFor(src domain.Source) Extractor {
	for _, e := range uc.extractors {
		if e.Accepts(src) {
			return e
		}
	}
	return nil
}

// IsSourceFailure reports whether err came from a strict-mode source failure.
func IsSourceFailure(err error) bool {
	return errors.Is(err, ErrSourceFailed)
}
