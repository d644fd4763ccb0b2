// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// CandidateSet is the ordered result of one extraction run. Candidate ids
// run from 0 to Len()-1 in emission order. A set is read-only once built
// and safe for concurrent readers.
type CandidateSet struct {
	kind       types.CandidateKind
	candidates []Candidate
	sentences  []*types.Sentence

	labelOnce sync.Once
	byLabel   map[string][]int
}

func newCandidateSet(kind types.CandidateKind) *CandidateSet {
	return &CandidateSet{kind: kind}
}

// Kind reports whether the set holds entities or relations.
func (cs *CandidateSet) Kind() types.CandidateKind {
	return cs.kind
}

// Len returns the number of candidates.
func (cs *CandidateSet) Len() int {
	return len(cs.candidates)
}

// Get returns the candidate with the given id.
func (cs *CandidateSet) Get(id int) (Candidate, bool) {
	if id < 0 || id >= len(cs.candidates) {
		return Candidate{}, false
	}
	return cs.candidates[id], true
}

// All iterates candidates in id order.
func (cs *CandidateSet) All() iter.Seq2[int, Candidate] {
	return func(yield func(int, Candidate) bool) {
		for i, c := range cs.candidates {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Sentences returns the sentences that produced at least one candidate,
// in corpus order, each once.
func (cs *CandidateSet) Sentences() []*types.Sentence {
	return slices.Clone(cs.sentences)
}

// ByLabel returns the ids of candidates with a span carrying label, in id
// order. The index is built on first use.
func (cs *CandidateSet) ByLabel(label string) []int {
	cs.labelOnce.Do(cs.buildLabelIndex)
	return slices.Clone(cs.byLabel[label])
}

// Labels returns every non-empty span label in the set, sorted.
func (cs *CandidateSet) Labels() []string {
	cs.labelOnce.Do(cs.buildLabelIndex)
	out := make([]string, 0, len(cs.byLabel))
	for l := range cs.byLabel {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (cs *CandidateSet) buildLabelIndex() {
	idx := make(map[string][]int)
	for _, c := range cs.candidates {
		for i, sp := range c.Spans {
			if sp.Label == "" || slices.Contains(c.Labels()[:i], sp.Label) {
				continue
			}
			idx[sp.Label] = append(idx[sp.Label], c.ID)
		}
	}
	cs.byLabel = idx
}
