package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvedPlaceholder = errors.New("unresolved path placeholder")
	ErrUnsupportedFormat     = errors.New("unsupported format")
)

// ParseError reports a structural failure while reading a source. It never
// aborts a discovery run by itself.
type ParseError struct {
	Source string
	Format string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("parse %s (%s): %v", e.Source, e.Format, e.Cause)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// GenerationError reports an endpoint that cannot become a tool because a
// path placeholder has no matching path parameter.
type GenerationError struct {
	Method      Method
	Path        string
	Placeholder string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s %s: placeholder %q has no path parameter", e.Method, e.Path, e.Placeholder)
}

func (e *GenerationError) Unwrap() error { return ErrUnresolvedPlaceholder }
