// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"github.com/pdiddy/candidate-engine/pkg/types"
)

// Candidate is one extracted entity or relation mention. Entities carry
// one span, relations two. The sentence is shared with the corpus and
// with every other candidate drawn from it.
type Candidate struct {
	ID       int
	Sentence *types.Sentence
	Spans    []types.Span
}

// Arity returns the number of spans.
func (c Candidate) Arity() int {
	return len(c.Spans)
}

// Span returns the entity span.
func (c Candidate) Span() types.Span {
	return c.Spans[0]
}

// Span1 returns the first span of a relation.
func (c Candidate) Span1() types.Span {
	return c.Spans[0]
}

// Span2 returns the second span of a relation.
func (c Candidate) Span2() types.Span {
	return c.Spans[1]
}

// Text returns the surface words of span i joined by single spaces.
func (c Candidate) Text(i int) string {
	sp := c.Spans[i]
	return c.Sentence.Join(types.Word, sp.Start, sp.End)
}

// Labels returns the label of each span, in span order.
func (c Candidate) Labels() []string {
	out := make([]string, len(c.Spans))
	for i, sp := range c.Spans {
		out[i] = sp.Label
	}
	return out
}
