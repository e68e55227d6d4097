package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"

	"github.com/i2y/apiforge/internal/domain"
)

// ExtractOptions tunes the heuristic extractors for one run.
type ExtractOptions struct {
	// HandlerWindow caps how far past a route match the pattern extractor
	// looks for parameter accesses.
	HandlerWindow int
	// DocWindow is how much text around a documented endpoint is searched
	// for parameters, on each side.
	DocWindow int
}

// DefaultExtractOptions returns the window sizes used when none are configured.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{HandlerWindow: 3000, DocWindow: 500}
}

// RunContext carries everything scoped to a single discovery run. A new one
// is created for every run and passed to each extraction explicitly.
type RunContext struct {
	ID        uuid.UUID
	StartedAt time.Time
	Logger    *slog.Logger
	Options   ExtractOptions

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewRunContext creates a run context for roughly expectedSources inputs.
func NewRunContext(logger *slog.Logger, opts ExtractOptions, expectedSources int) *RunContext {
	if expectedSources < 64 {
		expectedSources = 64
	}
	if opts.HandlerWindow <= 0 || opts.DocWindow <= 0 {
		def := DefaultExtractOptions()
		if opts.HandlerWindow <= 0 {
			opts.HandlerWindow = def.HandlerWindow
		}
		if opts.DocWindow <= 0 {
			opts.DocWindow = def.DocWindow
		}
	}
	id := uuid.New()
	return &RunContext{
		ID:        id,
		StartedAt: time.Now(),
		Logger:    logger.With(slog.String("run_id", id.String())),
		Options:   opts,
		filter:    bloom.NewWithEstimates(uint(expectedSources), 0.001),
		exact:     make(map[string]struct{}),
	}
}

// MarkSeen records src and reports whether identical content was already
// seen in this run.
func (rc *RunContext) MarkSeen(src domain.Source) bool {
	key := sourceFingerprint(src)

	rc.mu.RLock()
	if rc.filter.TestString(key) {
		if _, ok := rc.exact[key]; ok {
			rc.mu.RUnlock()
			return true
		}
	}
	rc.mu.RUnlock()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.exact[key]; ok {
		return true
	}
	rc.filter.AddString(key)
	rc.exact[key] = struct{}{}
	return false
}

// SeenCount returns how many distinct sources were recorded.
func (rc *RunContext) SeenCount() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.exact)
}

func sourceFingerprint(src domain.Source) string {
	h := sha256.New()
	h.Write([]byte(src.Kind))
	h.Write([]byte{0})
	h.Write([]byte(src.Language))
	h.Write([]byte{0})
	h.Write(src.Data)
	return hex.EncodeToString(h.Sum(nil))
}
