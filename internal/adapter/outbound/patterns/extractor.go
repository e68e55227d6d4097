package patterns

import (
	"context"
	"log/slog"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const extractorName = "patterns"

// Extractor applies the framework table to source code. Go sources are left
// to the structural extractor.
type Extractor struct {
	logger *slog.Logger
	window int
}

// NewExtractor creates a pattern extractor using the default handler window.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "patterns_extractor"),
		window: usecase.DefaultExtractOptions().HandlerWindow,
	}
}

// Name identifies the extractor in results.
func (e *Extractor) Name() string { return extractorName }

// Tier ranks pattern matches below structural code extraction.
func (e *Extractor) Tier() domain.Tier { return domain.TierPattern }

// Accepts takes code in any language but Go.
func (e *Extractor) Accepts(src domain.Source) bool {
	return src.Kind == domain.KindCode && src.Language != "go"
}

// Extract detects the framework of src and applies its route table.
func (e *Extractor) Extract(ctx context.Context, run *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(src.Origin, extractorName, domain.TierPattern, err)
	}
	log, window := e.logger, e.window
	if run != nil {
		log = run.Logger.With("component", "patterns_extractor")
		window = run.Options.HandlerWindow
	}

	text := string(src.Data)
	fw := Detect(text, src.Language)
	eps := fw.Endpoints(src.Origin, text, window)
	log.Debug("Scanned source with framework patterns.",
		slog.String("source", src.Origin),
		slog.String("language", src.Language),
		slog.String("framework", fw.Name),
		slog.Int("endpoint_count", len(eps)))

	res := domain.Matched(src.Origin, extractorName, domain.TierPattern, eps)
	res.BaseURL = src.BaseURL
	return res
}
