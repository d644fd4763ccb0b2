// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAttribute is returned for token attribute names that do not map
// to a Sentence field.
var ErrUnknownAttribute = errors.New("unknown token attribute")

// Attribute selects one of the per-token arrays of a Sentence.
type Attribute int

const (
	Word Attribute = iota
	Lemma
	PartOfSpeech
	DependencyLabel
)

var attributeNames = map[Attribute]string{
	Word:            "words",
	Lemma:           "lemmas",
	PartOfSpeech:    "poses",
	DependencyLabel: "dep_labels",
}

var attributeAliases = map[string]Attribute{
	"words":          Word,
	"word":           Word,
	"lemmas":         Lemma,
	"lemma":          Lemma,
	"poses":          PartOfSpeech,
	"pos":            PartOfSpeech,
	"part_of_speech": PartOfSpeech,
	"dep_labels":     DependencyLabel,
	"dep_label":      DependencyLabel,
	"dep":            DependencyLabel,
}

// ParseAttribute maps a field name such as "poses" or "lemma" to an
// Attribute. An empty name selects Word.
func ParseAttribute(name string) (Attribute, error) {
	if name == "" {
		return Word, nil
	}
	attr, ok := attributeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return attr, nil
}

// Valid reports whether a is one of the declared attributes.
func (a Attribute) Valid() bool {
	_, ok := attributeNames[a]
	return ok
}

func (a Attribute) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Attribute(%d)", int(a))
}

// MarshalText encodes the attribute by its canonical field name.
func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAttribute, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts any name ParseAttribute accepts.
func (a *Attribute) UnmarshalText(text []byte) error {
	attr, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = attr
	return nil
}
