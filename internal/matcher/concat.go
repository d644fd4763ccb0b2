// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"strings"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// Concat applies its children in order and concatenates their spans.
// Duplicates across children are kept. Union and Multi are both Concat;
// they differ only in name.
type Concat struct {
	kind     string
	children []Matcher
	label    string
}

var _ Matcher = (*Concat)(nil)

// NewUnion combines two or more matchers of any kind.
func NewUnion(ms ...Matcher) (*Concat, error) {
	return newConcat("union", ms)
}

// NewMulti combines two or more alternative matchers for one label family.
func NewMulti(ms ...Matcher) (*Concat, error) {
	return newConcat("multi", ms)
}

func newConcat(kind string, ms []Matcher) (*Concat, error) {
	if len(ms) < 2 {
		return nil, fmt.Errorf("%w: %s got %d", ErrTooFewMatchers, kind, len(ms))
	}
	for i, m := range ms {
		if m == nil {
			return nil, fmt.Errorf("%w: %s child %d is nil", ErrPipeline, kind, i)
		}
	}
	children := make([]Matcher, len(ms))
	copy(children, ms)
	return &Concat{kind: kind, children: children}, nil
}

// WithLabel returns a copy that labels spans its children left unlabelled.
func (c *Concat) WithLabel(label string) *Concat {
	cp := *c
	cp.label = label
	return &cp
}

// Children returns the combined matchers in application order.
func (c *Concat) Children() []Matcher {
	out := make([]Matcher, len(c.children))
	copy(out, c.children)
	return out
}

func (c *Concat) Apply(s *types.Sentence) ([]types.Span, error) {
	var spans []types.Span
	for i, child := range c.children {
		got, err := child.Apply(s)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", c.kind, i, err)
		}
		for _, span := range got {
			if span.Label == "" {
				span.Label = c.label
			}
			spans = append(spans, span)
		}
	}
	return spans, nil
}

func (c *Concat) String() string {
	parts := make([]string, len(c.children))
	for i, child := range c.children {
		parts[i] = child.String()
	}
	return fmt.Sprintf("%s(%s)", c.kind, strings.Join(parts, ", "))
}
