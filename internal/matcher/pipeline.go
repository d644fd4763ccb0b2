// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/candidate-engine/pkg/types"
)

// Matcher types accepted in a pipeline definition.
const (
	TypeDictionary = "dictionary"
	TypeNGram      = "ngram"
	TypeFilter     = "filter"
	TypeUnion      = "union"
	TypeMulti      = "multi"
)

// MatcherDef is one named matcher in a pipeline file.
type MatcherDef struct {
	Type       string `yaml:"type"`
	Label      string `yaml:"label,omitempty"`
	Attribute  string `yaml:"attribute,omitempty"`
	IgnoreCase bool   `yaml:"ignore_case,omitempty"`

	// Dictionary settings.
	Terms        []string `yaml:"terms,omitempty"`
	TermsFile    string   `yaml:"terms_file,omitempty"`
	MinLength    int      `yaml:"min_length,omitempty"`
	LongestMatch *bool    `yaml:"longest_match,omitempty"`

	// NGram and Filter pattern.
	Pattern string `yaml:"pattern,omitempty"`

	// Filter settings.
	Inner  string `yaml:"inner,omitempty"`
	Negate bool   `yaml:"negate,omitempty"`

	// Union and Multi children, by name.
	Of []string `yaml:"of,omitempty"`
}

// ExtractDef names the matchers an extraction run uses.
type ExtractDef struct {
	Kind     string   `yaml:"kind"`
	Matchers []string `yaml:"matchers"`
}

// PipelineDef is the YAML form of a pipeline.
type PipelineDef struct {
	Matchers map[string]MatcherDef `yaml:"matchers"`
	Extract  ExtractDef            `yaml:"extract"`
}

// Pipeline is a built PipelineDef: every named matcher plus the ones the
// extract section selects, in order.
type Pipeline struct {
	Kind     types.CandidateKind
	Matchers map[string]Matcher
	Targets  []Matcher
}

// LoadPipeline reads and builds a pipeline file. Relative terms_file paths
// are resolved against the file's directory.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline %s: %w", path, err)
	}
	p, err := ParsePipeline(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return p, nil
}

// ParsePipeline decodes and builds a pipeline definition.
func ParsePipeline(data []byte, baseDir string) (*Pipeline, error) {
	var def PipelineDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: decoding YAML: %v", ErrPipeline, err)
	}
	return Build(def, baseDir)
}

// Build constructs every matcher in def and resolves the extract section.
// All configuration errors surface here, before any sentence is read.
func Build(def PipelineDef, baseDir string) (*Pipeline, error) {
	b := &builder{
		defs:     def.Matchers,
		baseDir:  baseDir,
		built:    make(map[string]Matcher, len(def.Matchers)),
		visiting: make(map[string]bool),
	}

	names := make([]string, 0, len(def.Matchers))
	for name := range def.Matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := b.build(name); err != nil {
			return nil, err
		}
	}

	kind, err := types.ParseCandidateKind(def.Extract.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %v", ErrPipeline, err)
	}

	p := &Pipeline{Kind: kind, Matchers: b.built}

	if len(def.Extract.Matchers) == 0 && def.Extract.Kind == "" {
		return p, nil
	}
	if got, want := len(def.Extract.Matchers), kind.Arity(); got != want {
		return nil, fmt.Errorf("%w: extract: %s needs %d matcher(s), got %d", ErrPipeline, kind, want, got)
	}
	for _, name := range def.Extract.Matchers {
		m, ok := b.built[name]
		if !ok {
			return nil, fmt.Errorf("%w: extract: unknown matcher %q", ErrPipeline, name)
		}
		p.Targets = append(p.Targets, m)
	}
	return p, nil
}

type builder struct {
	defs     map[string]MatcherDef
	baseDir  string
	built    map[string]Matcher
	visiting map[string]bool
}

func (b *builder) build(name string) (Matcher, error) {
	if m, ok := b.built[name]; ok {
		return m, nil
	}
	def, ok := b.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown matcher %q", ErrPipeline, name)
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("%w: reference cycle through matcher %q", ErrPipeline, name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	m, err := b.construct(def)
	if err != nil {
		return nil, fmt.Errorf("matcher %q: %w", name, err)
	}
	b.built[name] = m
	return m, nil
}

func (b *builder) construct(def MatcherDef) (Matcher, error) {
	attr, err := types.ParseAttribute(def.Attribute)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithLabel(def.Label),
		WithIgnoreCase(def.IgnoreCase),
		WithAttribute(attr),
	}

	switch strings.ToLower(def.Type) {
	case TypeDictionary:
		if def.LongestMatch != nil {
			opts = append(opts, WithLongestMatch(*def.LongestMatch))
		}
		if def.TermsFile == "" {
			return NewDictionary(FilterTerms(def.Terms, def.MinLength), opts...)
		}
		path := def.TermsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.baseDir, path)
		}
		set, err := loadTermSet(path, def.Terms, def.MinLength, def.IgnoreCase)
		if err != nil {
			return nil, err
		}
		return NewDictionaryFromSet(set, opts...)

	case TypeNGram:
		if def.Pattern == "" {
			return nil, fmt.Errorf("%w: ngram needs a pattern", ErrPipeline)
		}
		return NewNGram(def.Pattern, opts...)

	case TypeFilter:
		if def.Inner == "" || def.Pattern == "" {
			return nil, fmt.Errorf("%w: filter needs inner and pattern", ErrPipeline)
		}
		inner, err := b.build(def.Inner)
		if err != nil {
			return nil, err
		}
		return NewFilter(inner, def.Pattern, append(opts, WithNegate(def.Negate))...)

	case TypeUnion, TypeMulti:
		children := make([]Matcher, 0, len(def.Of))
		for _, child := range def.Of {
			m, err := b.build(child)
			if err != nil {
				return nil, err
			}
			children = append(children, m)
		}
		var c *Concat
		if strings.ToLower(def.Type) == TypeUnion {
			c, err = NewUnion(children...)
		} else {
			c, err = NewMulti(children...)
		}
		if err != nil {
			return nil, err
		}
		if def.Label != "" {
			c = c.WithLabel(def.Label)
		}
		return c, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrPipeline)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrPipeline, def.Type)
	}
}
