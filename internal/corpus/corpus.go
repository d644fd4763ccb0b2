// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus reads parsed sentences from disk. A corpus is a single
// file or a directory of files in JSON Lines, JSON, YAML, or CoNLL-U
// format; the format is chosen by file extension.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// ErrUnsupportedFormat is returned for files whose extension names no
// known sentence format.
var ErrUnsupportedFormat = errors.New("unsupported corpus format")

// Extensions lists the file extensions Load reads.
var Extensions = []string{".jsonl", ".json", ".yaml", ".yml", ".conllu"}

// maxLineBytes bounds one JSON Lines record.
const maxLineBytes = 16 << 20

// Supported reports whether path has a corpus file extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads every sentence under path. For a directory, supported files
// are read in name order; subdirectories are ignored. Each sentence is
// validated, and a sentence without a doc_id takes the file's base name.
func Load(path string) ([]types.Sentence, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", path, err)
	}
	var all []types.Sentence
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		sents, err := LoadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, sents...)
	}
	return all, nil
}

// LoadFile reads the sentences of one file.
func LoadFile(path string) ([]types.Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()

	var sents []types.Sentence
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		sents, err = ReadJSONLines(f)
	case ".json":
		sents, err = ReadJSON(f)
	case ".yaml", ".yml":
		sents, err = ReadYAML(f)
	case ".conllu":
		sents, err = ReadCoNLLU(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("corpus file %s: %w", path, err)
	}

	docID := DocID(path)
	for i := range sents {
		if sents[i].DocID == "" {
			sents[i].DocID = docID
		}
		if err := sents[i].Validate(); err != nil {
			return nil, fmt.Errorf("corpus file %s: sentence %d: %w", path, i, err)
		}
	}
	return sents, nil
}

// DocID derives a document id from a file name: the base name without
// its extension.
func DocID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadJSONLines reads one JSON sentence object per line. Blank lines are
// skipped.
func ReadJSONLines(r io.Reader) ([]types.Sentence, error) {
	var sents []types.Sentence
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var s types.Sentence
		if err := json.Unmarshal(text, &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sents = append(sents, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading JSON lines: %w", err)
	}
	return sents, nil
}

// ReadJSON reads a JSON array of sentences.
func ReadJSON(r io.Reader) ([]types.Sentence, error) {
	var sents []types.Sentence
	if err := json.NewDecoder(r).Decode(&sents); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return sents, nil
}

// ReadYAML reads a YAML sequence of sentences.
func ReadYAML(r io.Reader) ([]types.Sentence, error) {
	var sents []types.Sentence
	if err := yaml.NewDecoder(r).Decode(&sents); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	return sents, nil
}
