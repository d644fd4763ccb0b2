// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

const genePipeline = `
matchers:
  genes:
    type: dictionary
    label: Gene
    terms: [TP53, BRCA1]
  nouns:
    type: ngram
    label: Noun
    attribute: pos
    pattern: "NN.*"
  mutations:
    type: filter
    inner: nouns
    pattern: ".* mutation"
  either:
    type: union
    label: Mention
    of: [genes, mutations]
extract:
  kind: relations
  matchers: [genes, mutations]
`

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(genePipeline), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, types.KindRelations, p.Kind)
	assert.Len(t, p.Matchers, 4)
	require.Len(t, p.Targets, 2)
	assert.Same(t, p.Matchers["genes"], p.Targets[0])
	assert.Same(t, p.Matchers["mutations"], p.Targets[1])

	s := geneSentence()
	spans, err := p.Matchers["either"].Apply(s)
	require.NoError(t, err)
	assert.Equal(t, []types.Span{
		{Start: 1, End: 1, Label: "Gene"},
		{Start: 4, End: 4, Label: "Gene"},
		{Start: 4, End: 5, Label: "Noun"},
	}, spans)
}

func TestParsePipelineWithoutExtract(t *testing.T) {
	p, err := ParsePipeline([]byte(`
matchers:
  genes:
    type: dictionary
    terms: [TP53]
`), "")
	require.NoError(t, err)
	assert.Equal(t, types.KindEntities, p.Kind)
	assert.Empty(t, p.Targets)
}

func TestParsePipelineErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "bad yaml",
			yaml:    "matchers: [",
			wantErr: ErrPipeline,
		},
		{
			name: "missing type",
			yaml: `
matchers:
  a: {terms: [x]}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "unknown type",
			yaml: `
matchers:
  a: {type: fuzzy}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "unknown attribute",
			yaml: `
matchers:
  a: {type: ngram, pattern: x, attribute: shape}
`,
			wantErr: types.ErrUnknownAttribute,
		},
		{
			name: "bad regex",
			yaml: `
matchers:
  a: {type: ngram, pattern: "NN("}
`,
			wantErr: ErrInvalidPattern,
		},
		{
			name: "ngram without pattern",
			yaml: `
matchers:
  a: {type: ngram}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "filter without inner",
			yaml: `
matchers:
  a: {type: filter, pattern: x}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "unknown reference",
			yaml: `
matchers:
  a: {type: filter, inner: nope, pattern: x}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "self reference",
			yaml: `
matchers:
  a: {type: filter, inner: a, pattern: x}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "cycle",
			yaml: `
matchers:
  a: {type: filter, inner: b, pattern: x}
  b: {type: union, of: [c, a]}
  c: {type: dictionary, terms: [x]}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "union with one child",
			yaml: `
matchers:
  a: {type: dictionary, terms: [x]}
  u: {type: union, of: [a]}
`,
			wantErr: ErrTooFewMatchers,
		},
		{
			name: "unknown kind",
			yaml: `
matchers:
  a: {type: dictionary, terms: [x]}
extract: {kind: triples, matchers: [a]}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "relations with one matcher",
			yaml: `
matchers:
  a: {type: dictionary, terms: [x]}
extract: {kind: relations, matchers: [a]}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "entities with two matchers",
			yaml: `
matchers:
  a: {type: dictionary, terms: [x]}
extract: {kind: entities, matchers: [a, a]}
`,
			wantErr: ErrPipeline,
		},
		{
			name: "unknown extract matcher",
			yaml: `
matchers:
  a: {type: dictionary, terms: [x]}
extract: {kind: entities, matchers: [b]}
`,
			wantErr: ErrPipeline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.yaml), t.TempDir())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadPipelineTermsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "genes.tsv"), []byte(
		"# symbol\tname\n"+
			"TP53\ttumor protein p53\n"+
			"\n"+
			"BRCA1\tbreast cancer 1\n"+
			"AR\tandrogen receptor\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(`
matchers:
  genes:
    type: dictionary
    label: Gene
    terms_file: genes.tsv
    min_length: 3
    ignore_case: true
  genes_again:
    type: dictionary
    terms_file: genes.tsv
    min_length: 3
    ignore_case: true
extract:
  matchers: [genes]
`), 0o644))

	p, err := LoadPipeline(filepath.Join(dir, "pipeline.yaml"))
	require.NoError(t, err)
	require.Len(t, p.Targets, 1)

	s := sentence([]string{"tp53", "and", "AR", "brca1"}, nil)
	spans, err := p.Targets[0].Apply(s)
	require.NoError(t, err)
	assert.Equal(t, []types.Span{
		{Start: 0, End: 0, Label: "Gene"},
		{Start: 3, End: 3, Label: "Gene"},
	}, spans)

	// Both dictionaries share the cached set.
	a := p.Matchers["genes"].(*Dictionary)
	b := p.Matchers["genes_again"].(*Dictionary)
	assert.Same(t, a.set, b.set)
	assert.Equal(t, 2, a.set.Len())
}

func TestLoadTermSetReloadsEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("TP53\n"), 0o644))

	first, err := loadTermSet(path, nil, 0, false)
	require.NoError(t, err)
	again, err := loadTermSet(path, nil, 0, false)
	require.NoError(t, err)
	assert.Same(t, first, again)

	withInline, err := loadTermSet(path, []string{"BRCA1"}, 0, false)
	require.NoError(t, err)
	assert.NotSame(t, first, withInline)
	assert.Equal(t, 2, withInline.Len())

	require.NoError(t, os.WriteFile(path, []byte("TP53\nMYC\nKRAS\n"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	later := info.ModTime().Add(2e9)
	require.NoError(t, os.Chtimes(path, later, later))

	edited, err := loadTermSet(path, nil, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 3, edited.Len())
}

func TestLoadPipelineMissingFiles(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.yaml"), []byte(`
matchers:
  a: {type: dictionary, terms_file: nope.txt}
`), 0o644))
	_, err = LoadPipeline(filepath.Join(dir, "p.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
