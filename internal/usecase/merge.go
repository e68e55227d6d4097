package usecase

import (
	"errors"
	"fmt"
	"sort"

	"github.com/i2y/apiforge/internal/domain"
)

// MergePolicy decides whether a failed source is fatal for the run.
type MergePolicy struct {
	FailOnSourceError bool
}

// SourceFailure is a source whose extraction failed structurally.
type SourceFailure struct {
	Source    string
	Extractor string
	Err       error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Source, f.Extractor, f.Err)
}

func (f SourceFailure) Unwrap() error { return f.Err }

// MergeOutcome is the unified view of every extraction result of a run.
type MergeOutcome struct {
	Endpoints  []domain.Endpoint
	Auth       *domain.AuthInfo
	Schemas    map[string]any
	Failures   []SourceFailure
	NoMatches  []string
	Duplicates int
}

// Merge folds extraction results into one endpoint set. Results are visited
// by tier and, inside a tier, in the order given; the first record seen for
// an identity key wins and later ones are dropped whole. Every kept record
// has its path placeholders backfilled. The first non-nil auth info and the
// first schema of each name are kept.
//
// With policy.FailOnSourceError the outcome is still returned, together
// with an error wrapping ErrSourceFailed and every failure.
func Merge(results []domain.ExtractionResult, policy MergePolicy) (MergeOutcome, error) {
	ordered := make([]domain.ExtractionResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tier < ordered[j].Tier })

	var out MergeOutcome
	lists := make([][]domain.Endpoint, 0, len(ordered))
	for _, r := range ordered {
		switch r.Status {
		case domain.StatusFailed:
			out.Failures = append(out.Failures, SourceFailure{Source: r.Source, Extractor: r.Extractor, Err: r.Err})
			continue
		case domain.StatusNoMatch:
			out.NoMatches = append(out.NoMatches, r.Source)
		}
		if out.Auth == nil && !r.Auth.IsZero() {
			a := *r.Auth
			out.Auth = &a
		}
		for name, s := range r.Schemas {
			if out.Schemas == nil {
				out.Schemas = make(map[string]any)
			}
			if _, ok := out.Schemas[name]; !ok {
				out.Schemas[name] = s
			}
		}
		lists = append(lists, withProvenance(r))
	}

	out.Endpoints, out.Duplicates = MergeEndpoints(lists...)

	if policy.FailOnSourceError && len(out.Failures) > 0 {
		errs := []error{ErrSourceFailed}
		for _, f := range out.Failures {
			errs = append(errs, f)
		}
		return out, errors.Join(errs...)
	}
	return out, nil
}

// MergeEndpoints is the pure dedup core: lists are visited in order, the
// first record per identity key wins and is backfilled. It returns the kept
// records and how many were discarded. Merging its own output again yields
// the same records.
func MergeEndpoints(lists ...[]domain.Endpoint) ([]domain.Endpoint, int) {
	seen := make(map[domain.EndpointKey]struct{})
	var kept []domain.Endpoint
	dups := 0
	for _, list := range lists {
		for _, ep := range list {
			key := ep.Key()
			if _, ok := seen[key]; ok {
				dups++
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, ep.BackfillPlaceholders())
		}
	}
	return kept, dups
}

func withProvenance(r domain.ExtractionResult) []domain.Endpoint {
	eps := make([]domain.Endpoint, len(r.Endpoints))
	for i, ep := range r.Endpoints {
		if ep.Origin == "" {
			ep.Origin = r.Source
		}
		if ep.Extractor == "" {
			ep.Extractor = r.Extractor
		}
		if ep.BaseURL == "" {
			ep.BaseURL = r.BaseURL
		}
		eps[i] = ep
	}
	return eps
}
