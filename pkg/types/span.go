// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Span is an inclusive range of token indices within one Sentence. A span
// carries no reference to its sentence; it is only meaningful next to the
// sentence it was produced from.
type Span struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Len returns the number of tokens covered.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Valid reports whether 0 <= Start <= End < n.
func (s Span) Valid(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End < n
}

// Overlaps reports whether the two spans share a token.
func (s Span) Overlaps(o Span) bool {
	return s.Start <= o.End && o.Start <= s.End
}

func (s Span) String() string {
	if s.Label == "" {
		return fmt.Sprintf("[%d:%d]", s.Start, s.End)
	}
	return fmt.Sprintf("%s[%d:%d]", s.Label, s.Start, s.End)
}
