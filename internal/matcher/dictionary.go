// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// termSeparator joins the tokens of a multi-token term and of a token
// window before lookup.
const termSeparator = " "

// TermSet is the read-only lookup table behind a Dictionary. A TermSet can
// back any number of dictionaries.
type TermSet struct {
	keys       map[string]struct{}
	maxTokens  int
	ignoreCase bool
}

// NewTermSet normalises terms (whitespace collapsed to single spaces,
// lower-cased when ignoreCase) and records the longest term's token count.
// Blank terms are dropped.
func NewTermSet(terms []string, ignoreCase bool) *TermSet {
	ts := &TermSet{
		keys:       make(map[string]struct{}, len(terms)),
		ignoreCase: ignoreCase,
	}
	for _, term := range terms {
		fields := strings.Fields(term)
		if len(fields) == 0 {
			continue
		}
		key := strings.Join(fields, termSeparator)
		if ignoreCase {
			key = strings.ToLower(key)
		}
		ts.keys[key] = struct{}{}
		if len(fields) > ts.maxTokens {
			ts.maxTokens = len(fields)
		}
	}
	return ts
}

// Len returns the number of distinct terms.
func (ts *TermSet) Len() int {
	return len(ts.keys)
}

// MaxTokens returns the token count of the longest term.
func (ts *TermSet) MaxTokens() int {
	return ts.maxTokens
}

// Contains reports whether phrase, normalised the same way as the terms,
// is in the set.
func (ts *TermSet) Contains(phrase string) bool {
	key := strings.Join(strings.Fields(phrase), termSeparator)
	if ts.ignoreCase {
		key = strings.ToLower(key)
	}
	_, ok := ts.keys[key]
	return ok
}

// FilterTerms drops terms shorter than minLen characters. Callers apply it
// to raw dictionaries (gene symbol lists contain many one- and two-letter
// aliases) before building a TermSet.
func FilterTerms(terms []string, minLen int) []string {
	if minLen <= 0 {
		return terms
	}
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if utf8.RuneCountInString(strings.TrimSpace(t)) >= minLen {
			kept = append(kept, t)
		}
	}
	return kept
}

// Dictionary matches token windows whose joined attribute values are
// members of a TermSet.
type Dictionary struct {
	set  *TermSet
	opts options
}

var _ Matcher = (*Dictionary)(nil)

// NewDictionary builds a Dictionary over terms. WithIgnoreCase decides how
// the terms are normalised.
func NewDictionary(terms []string, opts ...Option) (*Dictionary, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Dictionary{set: NewTermSet(terms, o.ignoreCase), opts: o}, nil
}

// NewDictionaryFromSet builds a Dictionary that shares set. The set's case
// policy overrides WithIgnoreCase.
func NewDictionaryFromSet(set *TermSet, opts ...Option) (*Dictionary, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	o.ignoreCase = set.ignoreCase
	return &Dictionary{set: set, opts: o}, nil
}

// Apply scans start positions left to right. At each position it tries
// windows from the longest possible term length down to one token and
// emits the longest hit, or every hit when longest matching is off.
// Spans starting at different positions may overlap.
func (d *Dictionary) Apply(s *types.Sentence) ([]types.Span, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if d.set.Len() == 0 {
		return nil, nil
	}

	values := s.Values(d.opts.attr)
	n := len(values)

	var spans []types.Span
	for i := 0; i < n; i++ {
		for l := min(d.set.maxTokens, n-i); l >= 1; l-- {
			key := strings.Join(values[i:i+l], termSeparator)
			if d.set.ignoreCase {
				key = strings.ToLower(key)
			}
			if _, ok := d.set.keys[key]; !ok {
				continue
			}
			spans = append(spans, types.Span{Start: i, End: i + l - 1, Label: d.opts.label})
			if d.opts.longest {
				break
			}
		}
	}
	return spans, nil
}

func (d *Dictionary) String() string {
	return fmt.Sprintf("dictionary(label=%q, terms=%d, attr=%s, ignore_case=%t)",
		d.opts.label, d.set.Len(), d.opts.attr, d.set.ignoreCase)
}
