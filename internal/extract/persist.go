// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

const (
	blobFormat  = "candidate-set"
	blobVersion = 1
)

var (
	// ErrNoCandidates is returned by Load when the file does not exist.
	ErrNoCandidates = errors.New("no persisted candidate set")

	// ErrCorrupt is returned by Load when the file cannot be decoded or
	// fails an integrity check.
	ErrCorrupt = errors.New("corrupt candidate set")
)

// blob is the on-disk form of a CandidateSet. Checksum is the xxhash64 of
// the YAML encoding of Payload.
type blob struct {
	Format   string  `yaml:"format"`
	Version  int     `yaml:"version"`
	Kind     string  `yaml:"kind"`
	Checksum string  `yaml:"checksum"`
	Payload  payload `yaml:"payload"`
}

type payload struct {
	Sentences  []types.Sentence  `yaml:"sentences"`
	Candidates []candidateRecord `yaml:"candidates"`
}

type candidateRecord struct {
	ID       int          `yaml:"id"`
	Sentence int          `yaml:"sentence"`
	Spans    []types.Span `yaml:"spans"`
}

func checksum(p *payload) (string, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Save writes the set to path. The file is written next to its final
// location and renamed into place, so readers never see a partial file.
func (cs *CandidateSet) Save(path string) error {
	index := make(map[*types.Sentence]int, len(cs.sentences))
	p := payload{
		Sentences:  make([]types.Sentence, len(cs.sentences)),
		Candidates: make([]candidateRecord, len(cs.candidates)),
	}
	for i, s := range cs.sentences {
		index[s] = i
		p.Sentences[i] = *s
	}
	for i, c := range cs.candidates {
		p.Candidates[i] = candidateRecord{ID: c.ID, Sentence: index[c.Sentence], Spans: c.Spans}
	}

	sum, err := checksum(&p)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(blob{
		Format:   blobFormat,
		Version:  blobVersion,
		Kind:     string(cs.kind),
		Checksum: sum,
		Payload:  p,
	})
	if err != nil {
		return fmt.Errorf("marshaling candidate set: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}

// Load reads a set written by Save.
func Load(path string) (*CandidateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCandidates, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cs, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return cs, nil
}

func decode(data []byte) (*CandidateSet, error) {
	var b blob
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	if b.Format != blobFormat {
		return nil, fmt.Errorf("format %q, want %q", b.Format, blobFormat)
	}
	if b.Version != blobVersion {
		return nil, fmt.Errorf("unsupported version %d", b.Version)
	}
	kind, err := types.ParseCandidateKind(b.Kind)
	if err != nil || b.Kind == "" {
		return nil, fmt.Errorf("kind %q", b.Kind)
	}
	sum, err := checksum(&b.Payload)
	if err != nil {
		return nil, err
	}
	if sum != b.Checksum {
		return nil, fmt.Errorf("checksum %s, want %s", sum, b.Checksum)
	}

	cs := newCandidateSet(kind)
	cs.sentences = make([]*types.Sentence, len(b.Payload.Sentences))
	for i := range b.Payload.Sentences {
		s := &b.Payload.Sentences[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		cs.sentences[i] = s
	}

	cs.candidates = make([]Candidate, len(b.Payload.Candidates))
	for i, rec := range b.Payload.Candidates {
		if rec.ID != i {
			return nil, fmt.Errorf("candidate %d has id %d", i, rec.ID)
		}
		if rec.Sentence < 0 || rec.Sentence >= len(cs.sentences) {
			return nil, fmt.Errorf("candidate %d references sentence %d of %d", i, rec.Sentence, len(cs.sentences))
		}
		if len(rec.Spans) != kind.Arity() {
			return nil, fmt.Errorf("candidate %d has %d spans, %s needs %d", i, len(rec.Spans), kind, kind.Arity())
		}
		s := cs.sentences[rec.Sentence]
		for _, sp := range rec.Spans {
			if !sp.Valid(s.Len()) {
				return nil, fmt.Errorf("candidate %d span %s outside sentence %s", i, sp, s.Key())
			}
		}
		cs.candidates[i] = Candidate{ID: i, Sentence: s, Spans: rec.Spans}
	}
	return cs, nil
}
