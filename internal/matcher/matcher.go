// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package matcher implements the composable span matchers that turn a
// parsed sentence into candidate spans: dictionary lookup, attribute
// regular expressions, filters, and concatenating combinators. Matchers
// are immutable after construction and safe for concurrent use.
package matcher

import (
	"errors"
	"fmt"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

var (
	// ErrInvalidPattern is returned when a matcher's regular expression
	// does not compile.
	ErrInvalidPattern = errors.New("invalid matcher pattern")

	// ErrTooFewMatchers is returned by combinators built from fewer than
	// two matchers.
	ErrTooFewMatchers = errors.New("combinator needs at least two matchers")

	// ErrPipeline is wrapped by pipeline definition errors.
	ErrPipeline = errors.New("invalid pipeline")
)

// Matcher produces the spans of a sentence. Apply returns a newly
// allocated slice in the matcher's emission order; calling it again with
// the same sentence returns the same spans. Apply never modifies the
// sentence.
type Matcher interface {
	Apply(s *types.Sentence) ([]types.Span, error)
	String() string
}

// options collects the settings shared by the matcher constructors. Each
// constructor reads only the fields relevant to it.
type options struct {
	label      string
	ignoreCase bool
	attr       types.Attribute
	longest    bool
	negate     bool
}

func defaultOptions() options {
	return options{attr: types.Word, longest: true}
}

// Option configures a matcher.
type Option func(*options)

// WithLabel sets the label attached to emitted spans.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithIgnoreCase makes matching case-insensitive.
func WithIgnoreCase(ignore bool) Option {
	return func(o *options) { o.ignoreCase = ignore }
}

// WithAttribute selects the token attribute a matcher reads.
func WithAttribute(attr types.Attribute) Option {
	return func(o *options) { o.attr = attr }
}

// WithLongestMatch controls whether a Dictionary emits only the longest
// hit at each start position (the default) or every hit.
func WithLongestMatch(longest bool) Option {
	return func(o *options) { o.longest = longest }
}

// WithNegate inverts a Filter: spans that match the pattern are dropped.
func WithNegate(negate bool) Option {
	return func(o *options) { o.negate = negate }
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.attr.Valid() {
		return o, fmt.Errorf("%w: %d", types.ErrUnknownAttribute, int(o.attr))
	}
	return o, nil
}
