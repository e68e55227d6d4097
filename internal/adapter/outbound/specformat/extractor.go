package specformat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const extractorName = "specformat"

// Extractor runs the format parsers over specification sources.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a specification extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "specformat_extractor")}
}

func (e *Extractor) Name() string      { return extractorName }
func (e *Extractor) Tier() domain.Tier { return domain.TierSpec }

func (e *Extractor) Accepts(src domain.Source) bool {
	return src.Kind == domain.KindSpec
}

// Extract parses src. A configured base URL on the source wins over the one
// the document declares.
func (e *Extractor) Extract(ctx context.Context, run *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(src.Origin, extractorName, domain.TierSpec, err)
	}
	log := e.logger
	if run != nil {
		log = run.Logger.With("component", "specformat_extractor")
	}
	log = log.With(slog.String("source", src.Origin))

	hint, ok := ParseFormat(src.FormatHint)
	if !ok {
		err := fmt.Errorf("format %q: %w", src.FormatHint, domain.ErrUnsupportedFormat)
		return domain.Failed(src.Origin, extractorName, domain.TierSpec, err)
	}

	doc, err := parse(log, src.Origin, src.Data, hint)
	if err != nil {
		log.Warn("Failed to parse specification.", slog.Any("error", err))
		return domain.Failed(src.Origin, extractorName, domain.TierSpec, err)
	}

	res := domain.Matched(src.Origin, extractorName, domain.TierSpec, doc.Endpoints)
	res.Auth = doc.Auth
	res.Schemas = doc.Schemas
	res.BaseURL = doc.BaseURL
	if src.BaseURL != "" {
		res.BaseURL = src.BaseURL
	}
	log.Info("Parsed specification.",
		slog.String("format", string(doc.Format)),
		slog.Int("endpoint_count", len(doc.Endpoints)))
	return res
}
