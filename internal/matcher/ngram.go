// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"regexp"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// compileAnchored compiles pattern so that it must match a whole value.
func compileAnchored(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	expr := "^(?:" + pattern + ")$"
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// NGram emits one span per maximal run of adjacent tokens whose attribute
// value matches a regular expression. With WithAttribute(types.PartOfSpeech)
// the pattern "NN.*" tags noun phrases; with the default Word attribute it
// tags surface forms.
type NGram struct {
	pattern string
	re      *regexp.Regexp
	opts    options
}

var _ Matcher = (*NGram)(nil)

// NewNGram compiles pattern. The pattern must match a token's whole value.
func NewNGram(pattern string, opts ...Option) (*NGram, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	re, err := compileAnchored(pattern, o.ignoreCase)
	if err != nil {
		return nil, err
	}
	return &NGram{pattern: pattern, re: re, opts: o}, nil
}

func (m *NGram) Apply(s *types.Sentence) ([]types.Span, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var spans []types.Span
	start := -1
	for i, v := range s.Values(m.opts.attr) {
		if m.re.MatchString(v) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, types.Span{Start: start, End: i - 1, Label: m.opts.label})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, types.Span{Start: start, End: s.Len() - 1, Label: m.opts.label})
	}
	return spans, nil
}

func (m *NGram) String() string {
	return fmt.Sprintf("ngram(label=%q, pattern=%q, attr=%s)", m.opts.label, m.pattern, m.opts.attr)
}
