// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// CandidateKind distinguishes single-span from paired-span candidate sets.
type CandidateKind string

const (
	KindEntities  CandidateKind = "entities"
	KindRelations CandidateKind = "relations"
)

// Arity returns the number of spans per candidate of this kind.
func (k CandidateKind) Arity() int {
	switch k {
	case KindEntities:
		return 1
	case KindRelations:
		return 2
	default:
		return 0
	}
}

// ParseCandidateKind validates a kind name. An empty name means entities.
func ParseCandidateKind(s string) (CandidateKind, error) {
	switch CandidateKind(s) {
	case "", KindEntities:
		return KindEntities, nil
	case KindRelations:
		return KindRelations, nil
	default:
		return "", fmt.Errorf("unknown candidate kind %q: use entities or relations", s)
	}
}
