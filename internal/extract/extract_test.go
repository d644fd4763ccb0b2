// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/candidate-engine/internal/matcher"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

// newSentence builds a valid sentence whose tokens all hang off the first.
func newSentence(doc string, id int, words, poses []string) types.Sentence {
	n := len(words)
	s := types.Sentence{
		DocID:      doc,
		ID:         id,
		Text:       strings.Join(words, " "),
		Words:      words,
		Lemmas:     make([]string, n),
		Poses:      poses,
		DepParents: make([]int, n),
		DepLabels:  make([]string, n),
		TokenIdxs:  make([]int, n),
	}
	offset := 0
	for i, w := range words {
		s.Lemmas[i] = strings.ToLower(w)
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
		newSentence("d1", 0, []string{"the", "TP53", "gene", "and", "BRCA1", "mutation"},
			[]string{"DT", "NN", "NN", "CC", "NN", "NN"}),
		newSentence("d1", 1, []string{"nothing", "here"}, []string{"NN", "RB"}),
		newSentence("d2", 0, []string{"BRCA1", "causes", "cancer"}, []string{"NN", "VBZ", "NN"}),
		newSentence("d2", 1, nil, nil),
	}
}

func mustDictionary(t *testing.T, label string, terms ...string) matcher.Matcher {
	t.Helper()
	d, err := matcher.NewDictionary(terms, matcher.WithLabel(label))
	require.NoError(t, err)
	return d
}

func mustNGram(t *testing.T, label, pattern string) matcher.Matcher {
	t.Helper()
	m, err := matcher.NewNGram(pattern, matcher.WithAttribute(types.PartOfSpeech), matcher.WithLabel(label))
	require.NoError(t, err)
	return m
}

func TestEntitiesCount(t *testing.T) {
	corpus := testCorpus()
	genes := mustDictionary(t, "Gene", "TP53", "BRCA1")

	want := 0
	for i := range corpus {
		spans, err := genes.Apply(&corpus[i])
		require.NoError(t, err)
		want += len(spans)
	}

	set, err := Entities(context.Background(), corpus, genes)
	require.NoError(t, err)
	assert.Equal(t, types.KindEntities, set.Kind())
	assert.Equal(t, want, set.Len())
	assert.Equal(t, 3, set.Len())

	var texts []string
	for id, c := range set.All() {
		assert.Equal(t, id, c.ID)
		assert.Equal(t, 1, c.Arity())
		texts = append(texts, c.Sentence.Key()+":"+c.Text(0))
	}
	assert.Equal(t, []string{"d1/0:TP53", "d1/0:BRCA1", "d2/0:BRCA1"}, texts)
}

func TestRelationsCartesianProduct(t *testing.T) {
	corpus := []types.Sentence{
		newSentence("d", 0, []string{"TP53", "BRCA1", "binds", "MDM2", "and", "ATM", "kinase"},
			[]string{"NN", "NN", "VBZ", "NN", "CC", "NN", "NN"}),
	}
	m1 := mustDictionary(t, "Gene", "TP53", "BRCA1")
	m2 := mustDictionary(t, "Target", "MDM2", "ATM", "kinase")

	set, err := Relations(context.Background(), corpus, m1, m2)
	require.NoError(t, err)
	require.Equal(t, 6, set.Len())

	var pairs []string
	for _, c := range set.All() {
		assert.Equal(t, 2, c.Arity())
		pairs = append(pairs, c.Text(0)+"-"+c.Text(1))
	}
	assert.Equal(t, []string{
		"TP53-MDM2", "TP53-ATM", "TP53-kinase",
		"BRCA1-MDM2", "BRCA1-ATM", "BRCA1-kinase",
	}, pairs)

	first, ok := set.Get(0)
	require.True(t, ok)
	assert.Equal(t, types.Span{Start: 0, End: 0, Label: "Gene"}, first.Span1())
	assert.Equal(t, types.Span{Start: 3, End: 3, Label: "Target"}, first.Span2())
}

func TestRelationsCount(t *testing.T) {
	corpus := testCorpus()
	m1 := mustDictionary(t, "Gene", "TP53", "BRCA1")
	m2 := mustNGram(t, "Noun", "NN")

	want := 0
	for i := range corpus {
		a, err := m1.Apply(&corpus[i])
		require.NoError(t, err)
		b, err := m2.Apply(&corpus[i])
		require.NoError(t, err)
		want += len(a) * len(b)
	}

	set, err := Relations(context.Background(), corpus, m1, m2)
	require.NoError(t, err)
	assert.Equal(t, want, set.Len())
}

func TestRelationsKeepIdenticalPairs(t *testing.T) {
	corpus := testCorpus()[:1]
	genes := mustDictionary(t, "Gene", "TP53")

	set, err := Relations(context.Background(), corpus, genes, genes)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	c, _ := set.Get(0)
	assert.Equal(t, c.Span1(), c.Span2())
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	var corpus []types.Sentence
	for i := range 200 {
		words := []string{"TP53", "and", "BRCA1"}
		if i%3 == 0 {
			words = []string{"no", "genes"}
		}
		corpus = append(corpus, newSentence(fmt.Sprintf("doc%d", i/10), i%10, words, make([]string, len(words))))
	}
	m1 := mustDictionary(t, "Gene", "TP53", "BRCA1")
	m2 := mustDictionary(t, "Gene", "BRCA1", "genes")

	baseline, err := Relations(context.Background(), corpus, m1, m2, WithWorkers(1))
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16, 0} {
		got, err := Relations(context.Background(), corpus, m1, m2, WithWorkers(workers))
		require.NoError(t, err)
		require.Equal(t, baseline.Len(), got.Len(), "workers=%d", workers)
		for id, c := range baseline.All() {
			g, ok := got.Get(id)
			require.True(t, ok)
			assert.Equal(t, c.Sentence.Key(), g.Sentence.Key(), "workers=%d id=%d", workers, id)
			assert.Equal(t, c.Spans, g.Spans, "workers=%d id=%d", workers, id)
		}
	}
}

func TestEmptyInputs(t *testing.T) {
	empty, err := matcher.NewDictionary(nil)
	require.NoError(t, err)

	set, err := Entities(context.Background(), testCorpus(), empty)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Sentences())

	set, err = Relations(context.Background(), nil, empty, empty)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := Entities(ctx, testCorpus(), mustDictionary(t, "Gene", "TP53"))
	assert.Nil(t, set)

	var incomplete *IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.KindEntities, incomplete.Kind)
	assert.Equal(t, 0, incomplete.Processed)
	assert.Equal(t, 4, incomplete.Total)
}

// cancellingMatcher cancels the run whenever it is applied.
type cancellingMatcher struct {
	matcher.Matcher
	cancel context.CancelFunc
}

func (m cancellingMatcher) Apply(s *types.Sentence) ([]types.Span, error) {
	m.cancel()
	return m.Matcher.Apply(s)
}

func TestCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := cancellingMatcher{Matcher: mustDictionary(t, "Gene", "TP53"), cancel: cancel}

	before := testutil.ToFloat64(incompleteRuns.WithLabelValues("entities"))
	set, err := Entities(ctx, testCorpus(), m, WithWorkers(1))
	assert.Nil(t, set)

	var incomplete *IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.Processed)
	assert.Equal(t, 4, incomplete.Total)
	assert.Equal(t, before+1, testutil.ToFloat64(incompleteRuns.WithLabelValues("entities")))
}

func TestDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := Entities(ctx, testCorpus(), mustDictionary(t, "Gene", "TP53"))
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPairLimit(t *testing.T) {
	corpus := testCorpus()
	m1 := mustDictionary(t, "Gene", "TP53", "BRCA1")
	m2 := mustNGram(t, "Noun", "NN")

	_, err := Relations(context.Background(), corpus, m1, m2, WithMaxPairs(3))
	assert.ErrorIs(t, err, ErrPairLimit)
	var incomplete *IncompleteError
	assert.False(t, errors.As(err, &incomplete))

	set, err := Relations(context.Background(), corpus, m1, m2, WithMaxPairs(8))
	require.NoError(t, err)
	assert.Positive(t, set.Len())
}

type fixedMatcher []types.Span

func (f fixedMatcher) Apply(*types.Sentence) ([]types.Span, error) { return f, nil }
func (f fixedMatcher) String() string                              { return "fixed" }

func TestMatcherErrors(t *testing.T) {
	corpus := testCorpus()
	corpus[2].Poses = corpus[2].Poses[:1]

	_, err := Entities(context.Background(), corpus, mustDictionary(t, "Gene", "TP53"))
	assert.ErrorIs(t, err, types.ErrMalformedSentence)
	assert.ErrorContains(t, err, "d2/0")

	_, err = Entities(context.Background(), testCorpus()[:1], fixedMatcher{{Start: 2, End: 40}})
	assert.ErrorContains(t, err, "outside")

	_, err = Entities(context.Background(), testCorpus(), nil)
	assert.ErrorIs(t, err, matcher.ErrPipeline)
	_, err = Relations(context.Background(), testCorpus(), nil, fixedMatcher{})
	assert.ErrorIs(t, err, matcher.ErrPipeline)
}

func TestRunPipeline(t *testing.T) {
	p, err := matcher.ParsePipeline([]byte(`
matchers:
  genes: {type: dictionary, label: Gene, terms: [TP53, BRCA1]}
  nouns: {type: ngram, label: Noun, attribute: poses, pattern: "NN"}
extract:
  kind: relations
  matchers: [genes, nouns]
`), "")
	require.NoError(t, err)

	set, err := Run(context.Background(), testCorpus(), p, WithLogger(zap.NewExample()))
	require.NoError(t, err)
	assert.Equal(t, types.KindRelations, set.Kind())

	direct, err := Relations(context.Background(), testCorpus(), p.Targets[0], p.Targets[1])
	require.NoError(t, err)
	assert.Equal(t, direct.Len(), set.Len())

	_, err = Run(context.Background(), testCorpus(), &matcher.Pipeline{Kind: types.KindRelations})
	assert.ErrorIs(t, err, matcher.ErrPipeline)
}

func TestCandidateSetIndex(t *testing.T) {
	corpus := testCorpus()
	genes := mustDictionary(t, "Gene", "TP53", "BRCA1")
	nouns := mustNGram(t, "Noun", "NN")
	u, err := matcher.NewUnion(genes, nouns)
	require.NoError(t, err)

	set, err := Entities(context.Background(), corpus, u)
	require.NoError(t, err)

	assert.Equal(t, []string{"Gene", "Noun"}, set.Labels())
	assert.Equal(t, []int{0, 1, 5}, set.ByLabel("Gene"))
	assert.Nil(t, set.ByLabel("Disease"))

	ids := set.ByLabel("Gene")
	ids[0] = 99
	assert.Equal(t, 0, set.ByLabel("Gene")[0])

	sents := set.Sentences()
	keys := make([]string, len(sents))
	for i, s := range sents {
		keys[i] = s.Key()
	}
	assert.Equal(t, []string{"d1/0", "d1/1", "d2/0"}, keys)
	assert.Same(t, &corpus[0], sents[0])

	_, ok := set.Get(-1)
	assert.False(t, ok)
	_, ok = set.Get(set.Len())
	assert.False(t, ok)

	n := 0
	for range set.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestRelationLabelIndexCountsCandidateOnce(t *testing.T) {
	genes := mustDictionary(t, "Gene", "TP53", "BRCA1")
	set, err := Relations(context.Background(), testCorpus()[:1], genes, genes)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, set.ByLabel("Gene"))
}

func TestRender(t *testing.T) {
	corpus := testCorpus()[:1]
	m1 := mustDictionary(t, "Gene", "TP53")
	m2 := mustNGram(t, "Noun", "NN")
	set, err := Relations(context.Background(), corpus, m1, m2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, set.Render(&buf, 0, TextRenderer{}))
	assert.Equal(t, "0\td1/0\tGene/Noun\tthe [[{{TP53]] gene}} and BRCA1 mutation\n", buf.String())

	buf.Reset()
	require.NoError(t, set.Render(&buf, 1, TextRenderer{}))
	assert.Equal(t, "1\td1/0\tGene/Noun\tthe [[TP53]] gene and {{BRCA1 mutation}}\n", buf.String())

	buf.Reset()
	require.NoError(t, set.Render(&buf, 1, JSONRenderer{}))
	assert.JSONEq(t, `{"id":1,"doc_id":"d1","sent_id":0,"spans":[
		{"start":1,"end":1,"label":"Gene","text":"TP53"},
		{"start":4,"end":5,"label":"Noun","text":"BRCA1 mutation"}]}`, buf.String())

	assert.Error(t, set.Render(&buf, 42, TextRenderer{}))
}

func TestMetrics(t *testing.T) {
	before := testutil.ToFloat64(sentencesProcessed)
	beforeCandidates := testutil.ToFloat64(candidatesEmitted.WithLabelValues("entities"))

	set, err := Entities(context.Background(), testCorpus(), mustDictionary(t, "Gene", "TP53", "BRCA1"))
	require.NoError(t, err)

	assert.Equal(t, before+4, testutil.ToFloat64(sentencesProcessed))
	assert.Equal(t, beforeCandidates+float64(set.Len()), testutil.ToFloat64(candidatesEmitted.WithLabelValues("entities")))

	path := filepath.Join(t.TempDir(), "extract.prom")
	require.NoError(t, WriteMetrics(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "candidate_engine_extract_sentences_total")
	assert.Contains(t, string(data), `candidate_engine_extract_candidates_total{kind="entities"}`)
}
