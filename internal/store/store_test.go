// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/candidate-engine/internal/extract"
	"github.com/pdiddy/candidate-engine/internal/matcher"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, extractedDir), 0o755))

	s, err := NewStore(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func sentence(doc string, id int, words ...string) types.Sentence {
	n := len(words)
	s := types.Sentence{
		DocID:      doc,
		ID:         id,
		Text:       strings.Join(words, " "),
		Words:      words,
		Lemmas:     make([]string, n),
		Poses:      make([]string, n),
		DepParents: make([]int, n),
		DepLabels:  make([]string, n),
		TokenIdxs:  make([]int, n),
	}
	offset := 0
	for i, w := range words {
		s.Lemmas[i] = strings.ToLower(w)
		s.Poses[i] = "NN"
		s.DepLabels[i] = "dep"
		s.TokenIdxs[i] = offset
		offset += len(w) + 1
		if i > 0 {
			s.DepParents[i] = 1
		}
	}
	return s
}

func testCorpus() []types.Sentence {
	return []types.Sentence{
		sentence("d1", 0, "TP53", "binds", "MDM2"),
		sentence("d1", 1, "nothing", "here"),
		sentence("d2", 0, "BRCA1", "mutation", "causes", "cancer"),
	}
}

func dictionary(t *testing.T, label string, terms ...string) matcher.Matcher {
	t.Helper()
	d, err := matcher.NewDictionary(terms, matcher.WithLabel(label))
	require.NoError(t, err)
	return d
}

// writeSet saves a candidate set into the extracted directory and sets its
// modification time, so tests control change detection.
func writeSet(t *testing.T, dir, name string, set *extract.CandidateSet, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, extractedDir, name+extract.SetSuffix)
	require.NoError(t, set.Save(path))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func geneSet(t *testing.T, terms ...string) *extract.CandidateSet {
	t.Helper()
	set, err := extract.Entities(context.Background(), testCorpus(), dictionary(t, "Gene", terms...))
	require.NoError(t, err)
	return set
}

func pairSet(t *testing.T) *extract.CandidateSet {
	t.Helper()
	set, err := extract.Relations(context.Background(), testCorpus(),
		dictionary(t, "Gene", "TP53", "BRCA1"),
		dictionary(t, "Disease", "cancer", "MDM2"))
	require.NoError(t, err)
	return set
}

// --- tests ---

func TestIngestAndRetrieve(t *testing.T) {
	s, dir := testSetup(t)
	base := time.Now().Add(-time.Hour)
	writeSet(t, dir, "genes", geneSet(t, "TP53", "BRCA1", "MDM2"), base)
	writeSet(t, dir, "pairs", pairSet(t), base)
	require.NoError(t, os.WriteFile(filepath.Join(dir, extractedDir, "notes.txt"), []byte("ignored"), 0o644))

	var log bytes.Buffer
	summary, err := s.Ingest(context.Background(), &log)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Indexed: 2}, summary)
	assert.Equal(t, 2, summary.Total())
	assert.Contains(t, log.String(), "indexing genes (3 candidates)")
	assert.Contains(t, log.String(), "indexing pairs (2 candidates)")

	sets, err := s.Sets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SetInfo{
		{Name: "genes", Kind: types.KindEntities, Candidates: 3},
		{Name: "pairs", Kind: types.KindRelations, Candidates: 2},
	}, sets)

	genes, err := s.Retrieve(context.Background(), QueryOptions{Set: "genes"})
	require.NoError(t, err)
	require.Len(t, genes, 3)
	assert.Equal(t, QueryResult{
		Set:      "genes",
		ID:       0,
		Kind:     types.KindEntities,
		DocID:    "d1",
		SentID:   0,
		Sentence: "TP53 binds MDM2",
		Spans:    []SpanResult{{Start: 0, End: 0, Label: "Gene", Text: "TP53"}},
	}, genes[0])
	assert.Equal(t, "MDM2", genes[1].Spans[0].Text)
	assert.Equal(t, "BRCA1", genes[2].Spans[0].Text)

	pairs, err := s.Retrieve(context.Background(), QueryOptions{Set: "pairs"})
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, []SpanResult{
		{Start: 0, End: 0, Label: "Gene", Text: "TP53"},
		{Start: 2, End: 2, Label: "Disease", Text: "MDM2"},
	}, pairs[0].Spans)
	assert.Equal(t, "d2", pairs[1].DocID)
	assert.Equal(t, "cancer", pairs[1].Spans[1].Text)
}

func TestRetrieveFilters(t *testing.T) {
	s, dir := testSetup(t)
	writeSet(t, dir, "genes", geneSet(t, "TP53", "BRCA1"), time.Now())
	writeSet(t, dir, "pairs", pairSet(t), time.Now())
	_, err := s.Ingest(context.Background(), io.Discard)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts QueryOptions
		want []string // set/id
	}{
		{"all", QueryOptions{}, []string{"genes/0", "genes/1", "pairs/0", "pairs/1"}},
		{"label matches either span", QueryOptions{Label: "Disease"}, []string{"pairs/0", "pairs/1"}},
		{"label on first span", QueryOptions{Label: "Gene"}, []string{"genes/0", "genes/1", "pairs/0", "pairs/1"}},
		{"document", QueryOptions{DocID: "d2"}, []string{"genes/1", "pairs/1"}},
		{"set and document", QueryOptions{Set: "genes", DocID: "d1"}, []string{"genes/0"}},
		{"full text", QueryOptions{Query: "cancer"}, []string{"genes/1", "pairs/1"}},
		{"full text with label", QueryOptions{Query: "binds", Label: "Disease"}, []string{"pairs/0"}},
		{"no match", QueryOptions{Label: "Drug"}, nil},
		{"limit", QueryOptions{MaxResults: 1}, []string{"genes/0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Retrieve(context.Background(), tt.opts)
			require.NoError(t, err)
			var got []string
			for _, r := range results {
				got = append(got, r.Set+"/"+strconv.Itoa(r.ID))
			}
			if tt.opts.Query != "" {
				assert.ElementsMatch(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, QueryOptions{}.IsEmpty())
	assert.False(t, QueryOptions{Label: "Gene"}.IsEmpty())
}

func TestIngestIncremental(t *testing.T) {
	s, dir := testSetup(t)
	base := time.Now().Add(-time.Hour)
	writeSet(t, dir, "genes", geneSet(t, "TP53", "BRCA1", "MDM2"), base)
	_, err := s.Ingest(context.Background(), io.Discard)
	require.NoError(t, err)

	// Same modification time.
	var log bytes.Buffer
	summary, err := s.Ingest(context.Background(), &log)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Skipped: 1}, summary)
	assert.Contains(t, log.String(), "skipped genes\n")

	// Touched but identical content.
	touched := base.Add(10 * time.Minute)
	path := filepath.Join(dir, extractedDir, "genes"+extract.SetSuffix)
	require.NoError(t, os.Chtimes(path, touched, touched))
	log.Reset()
	summary, err = s.Ingest(context.Background(), &log)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Skipped: 1}, summary)
	assert.Contains(t, log.String(), "skipped genes (unchanged content)")

	// Rewritten with fewer candidates replaces the old rows.
	writeSet(t, dir, "genes", geneSet(t, "TP53"), base.Add(20*time.Minute))
	log.Reset()
	summary, err = s.Ingest(context.Background(), &log)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Updated: 1}, summary)
	assert.Contains(t, log.String(), "updated genes (1 candidates)")

	results, err := s.Retrieve(context.Background(), QueryOptions{Set: "genes"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "TP53", results[0].Spans[0].Text)

	// Old sentences left the full-text index with their rows.
	results, err = s.Retrieve(context.Background(), QueryOptions{Query: "cancer"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIngestFailures(t *testing.T) {
	s, dir := testSetup(t)
	writeSet(t, dir, "genes", geneSet(t, "TP53"), time.Now())
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, extractedDir, "broken"+extract.SetSuffix), []byte("format: nope\n"), 0o644))

	var log bytes.Buffer
	summary, err := s.Ingest(context.Background(), &log)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Indexed: 1, Failed: 1}, summary)
	assert.Contains(t, log.String(), "failed  broken:")

	// A failed file is retried on the next run.
	summary, err = s.Ingest(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{Skipped: 1, Failed: 1}, summary)
}

func TestIngestErrors(t *testing.T) {
	s, dir := testSetup(t)
	writeSet(t, dir, "genes", geneSet(t, "TP53"), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Ingest(ctx, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, os.RemoveAll(s.ExtractedDir()))
	_, err = s.Ingest(context.Background(), io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExport(t *testing.T) {
	s, dir := testSetup(t)
	writeSet(t, dir, "genes", geneSet(t, "TP53", "BRCA1"), time.Now())
	writeSet(t, dir, "pairs", pairSet(t), time.Now())
	_, err := s.Ingest(context.Background(), io.Discard)
	require.NoError(t, err)

	// Ingest refreshes the YAML export.
	data, err := os.ReadFile(s.ExportPath("yaml"))
	require.NoError(t, err)
	var exported []QueryResult
	require.NoError(t, yaml.Unmarshal(data, &exported))
	assert.Len(t, exported, 4)

	require.NoError(t, s.ExportJSON(context.Background(), QueryOptions{Set: "pairs"}))
	data, err = os.ReadFile(s.ExportPath("json"))
	require.NoError(t, err)
	exported = nil
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, types.KindRelations, exported[0].Kind)
	assert.Len(t, exported[0].Spans, 2)

	// Empty results export as an empty list.
	require.NoError(t, s.ExportJSON(context.Background(), QueryOptions{Label: "Drug"}))
	data, err = os.ReadFile(s.ExportPath("json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestReopenKeepsIndex(t *testing.T) {
	s, dir := testSetup(t)
	writeSet(t, dir, "genes", geneSet(t, "TP53"), time.Now())
	_, err := s.Ingest(context.Background(), io.Discard)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewStore(types.StoreConfig{Dir: dir, MaxResults: 5})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Retrieve(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
