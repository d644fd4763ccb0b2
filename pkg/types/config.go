// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CorpusConfig locates the parsed sentence files.
type CorpusConfig struct {
	// Dir is a corpus file or a directory of .jsonl, .json, .yaml or .conllu files.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// ExtractionConfig holds settings for candidate extraction.
type ExtractionConfig struct {
	// Pipeline is the path of the matcher pipeline definition (YAML).
	Pipeline string `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`

	// Workers is the number of sentences matched concurrently (0 = GOMAXPROCS).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Timeout bounds a whole extraction run (0 = no limit).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxPairs fails a relations run when one sentence would produce more
	// pairs than this (0 = no limit).
	MaxPairs int `json:"max_pairs" yaml:"max_pairs" mapstructure:"max_pairs"`

	// OutDir is where candidate sets are written (the store's extracted/ dir).
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`
}

// ParseConfig holds settings for the external sentence parser.
type ParseConfig struct {
	// Image is the container image that reads document text on stdin and
	// writes CoNLL-U on stdout.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Args are extra arguments passed to the container entrypoint.
	Args []string `json:"args" yaml:"args" mapstructure:"args"`

	// DocsDir holds the raw .txt documents.
	DocsDir string `json:"docs_dir" yaml:"docs_dir" mapstructure:"docs_dir"`

	// OutDir receives one .conllu file per document.
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`
}

// StoreConfig holds settings for the candidate store.
type StoreConfig struct {
	// Dir is the base directory (contains extracted/, index/).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// JSON switches from console to JSON encoding.
	JSON bool `json:"json" yaml:"json" mapstructure:"json"`
}

// EngineConfig groups all settings read from candidate-engine.yaml.
type EngineConfig struct {
	Corpus     CorpusConfig     `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Parse      ParseConfig      `json:"parse" yaml:"parse" mapstructure:"parse"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
