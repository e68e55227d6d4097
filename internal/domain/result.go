package domain

// Tier ranks extractors by how much their output can be trusted. Lower
// tiers are merged first and therefore win identity collisions.
type Tier int

const (
	TierSpec Tier = iota
	TierStructural
	TierPattern
	TierDocument
)

func (t Tier) String() string {
	switch t {
	case TierSpec:
		return "spec"
	case TierStructural:
		return "structural"
	case TierPattern:
		return "pattern"
	case TierDocument:
		return "document"
	}
	return "unknown"
}

// ResultStatus tells an empty-but-understood input apart from a failure.
type ResultStatus string

const (
	StatusMatched ResultStatus = "matched"
	StatusNoMatch ResultStatus = "no_match"
	StatusFailed  ResultStatus = "failed"
)

// ExtractionResult is what one extractor produced for one source.
type ExtractionResult struct {
	Source    string
	Extractor string
	Tier      Tier
	Status    ResultStatus
	Endpoints []Endpoint
	Auth      *AuthInfo
	Schemas   map[string]any
	BaseURL   string
	Err       error
}

// Matched builds a result for endpoints found in source. An empty list is
// reported as NoMatch.
func Matched(source, extractor string, tier Tier, eps []Endpoint) ExtractionResult {
	status := StatusMatched
	if len(eps) == 0 {
		status = StatusNoMatch
	}
	return ExtractionResult{Source: source, Extractor: extractor, Tier: tier, Status: status, Endpoints: eps}
}

func NoMatch(source, extractor string, tier Tier) ExtractionResult {
	return ExtractionResult{Source: source, Extractor: extractor, Tier: tier, Status: StatusNoMatch}
}

func Failed(source, extractor string, tier Tier, err error) ExtractionResult {
	return ExtractionResult{Source: source, Extractor: extractor, Tier: tier, Status: StatusFailed, Err: err}
}
