// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedSentence is wrapped by every Sentence validation failure.
var ErrMalformedSentence = errors.New("malformed sentence")

// Sentence is one parsed sentence held as per-token parallel arrays.
// Sentences are produced by the corpus reader or an external parser and
// are never mutated afterwards; matchers and candidates share them by
// pointer.
type Sentence struct {
	// DocID identifies the source document.
	DocID string `json:"doc_id" yaml:"doc_id"`

	// ID is the sentence index within its document.
	ID int `json:"sent_id" yaml:"sent_id"`

	// Text is the raw sentence text.
	Text string `json:"text" yaml:"text"`

	// Words holds the surface form of each token and defines N.
	Words []string `json:"words" yaml:"words"`

	Lemmas []string `json:"lemmas" yaml:"lemmas"`
	Poses  []string `json:"poses" yaml:"poses"`

	// DepParents holds the 1-based head of each token. 0 marks the root;
	// a token pointing at itself is also accepted as the root.
	DepParents []int    `json:"dep_parents" yaml:"dep_parents"`
	DepLabels  []string `json:"dep_labels" yaml:"dep_labels"`

	// TokenIdxs holds the character offset of each token in Text.
	TokenIdxs []int `json:"token_idxs" yaml:"token_idxs"`
}

// Len returns the number of tokens.
func (s *Sentence) Len() int {
	return len(s.Words)
}

// Key returns the "<doc_id>/<sent_id>" identifier used by indexes and the
// candidate store.
func (s *Sentence) Key() string {
	return s.DocID + "/" + strconv.Itoa(s.ID)
}

// Values returns the token values for attr. The returned slice is the
// sentence's own storage and must not be modified.
func (s *Sentence) Values(attr Attribute) []string {
	switch attr {
	case Lemma:
		return s.Lemmas
	case PartOfSpeech:
		return s.Poses
	case DependencyLabel:
		return s.DepLabels
	default:
		return s.Words
	}
}

// Value returns the attr value of token i.
func (s *Sentence) Value(attr Attribute, i int) string {
	return s.Values(attr)[i]
}

// Join returns the attr values of tokens start..end (inclusive) joined by
// a single space.
func (s *Sentence) Join(attr Attribute, start, end int) string {
	return strings.Join(s.Values(attr)[start:end+1], " ")
}

// Validate checks the parallel-array and dependency-tree invariants.
func (s *Sentence) Validate() error {
	n := len(s.Words)

	lengths := []struct {
		field string
		got   int
	}{
		{"lemmas", len(s.Lemmas)},
		{"poses", len(s.Poses)},
		{"dep_parents", len(s.DepParents)},
		{"dep_labels", len(s.DepLabels)},
		{"token_idxs", len(s.TokenIdxs)},
	}
	for _, l := range lengths {
		if l.got != n {
			return fmt.Errorf("%w: sentence %s: %s has %d entries, words has %d",
				ErrMalformedSentence, s.Key(), l.field, l.got, n)
		}
	}

	for i, p := range s.DepParents {
		if p < 0 || p > n {
			return fmt.Errorf("%w: sentence %s: token %d has dependency parent %d outside [0, %d]",
				ErrMalformedSentence, s.Key(), i, p, n)
		}
	}

	return s.checkAcyclic()
}

// checkAcyclic walks each token towards the root. state 1 marks tokens on
// the current path, state 2 tokens already known to reach a root.
func (s *Sentence) checkAcyclic() error {
	n := len(s.DepParents)
	state := make([]uint8, n)

	for start := 0; start < n; start++ {
		var path []int
		i := start
		for {
			if state[i] == 2 {
				break
			}
			if state[i] == 1 {
				return fmt.Errorf("%w: sentence %s: dependency cycle through token %d",
					ErrMalformedSentence, s.Key(), i)
			}
			state[i] = 1
			path = append(path, i)

			parent := s.DepParents[i]
			if parent == 0 || parent == i+1 {
				break
			}
			i = parent - 1
		}
		for _, j := range path {
			state[j] = 2
		}
	}

	return nil
}
