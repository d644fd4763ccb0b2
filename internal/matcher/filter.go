// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"regexp"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// Filter keeps the spans of an inner matcher whose joined attribute values
// match a pattern. It never adds spans and keeps the inner order.
type Filter struct {
	inner   Matcher
	pattern string
	re      *regexp.Regexp
	opts    options
}

var _ Matcher = (*Filter)(nil)

// NewFilter wraps inner. The pattern must match the span's attribute
// values joined by single spaces, as a whole.
func NewFilter(inner Matcher, pattern string, opts ...Option) (*Filter, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: filter has no inner matcher", ErrPipeline)
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	re, err := compileAnchored(pattern, o.ignoreCase)
	if err != nil {
		return nil, err
	}
	return &Filter{inner: inner, pattern: pattern, re: re, opts: o}, nil
}

func (f *Filter) Apply(s *types.Sentence) ([]types.Span, error) {
	spans, err := f.inner.Apply(s)
	if err != nil {
		return nil, err
	}

	kept := spans[:0:0]
	for _, span := range spans {
		if !span.Valid(s.Len()) {
			return nil, fmt.Errorf("%s: inner matcher emitted %s outside sentence %s of %d tokens",
				f, span, s.Key(), s.Len())
		}
		if f.re.MatchString(s.Join(f.opts.attr, span.Start, span.End)) != f.opts.negate {
			kept = append(kept, span)
		}
	}
	return kept, nil
}

func (f *Filter) String() string {
	return fmt.Sprintf("filter(pattern=%q, attr=%s, negate=%t, inner=%s)",
		f.pattern, f.opts.attr, f.opts.negate, f.inner)
}
