// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns raw document text into corpus sentences by running
// an external parser. The parser is any container image that reads plain
// text on stdin and writes CoNLL-U on stdout; this package never
// tokenizes or parses text itself.
package parse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/candidate-engine/internal/corpus"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

// docExt names the raw document files ParseDir reads.
const docExt = ".txt"

// Parser splits and annotates one document.
type Parser interface {
	Parse(ctx context.Context, docID, text string) ([]types.Sentence, error)
}

// ContainerParser runs a parser image through a container Runtime.
type ContainerParser struct {
	runtime Runtime
	image   string
	args    []string
	logger  *zap.Logger
}

// NewContainerParser checks that cfg.Image exists in rt and returns a
// parser for it. A nil logger discards log output.
func NewContainerParser(rt Runtime, cfg types.ParseConfig, logger *zap.Logger) (*ContainerParser, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("no parser image configured")
	}
	if err := rt.ImageExists(cfg.Image); err != nil {
		return nil, fmt.Errorf("parser image not available in %s: %w", rt.Name(), err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContainerParser{runtime: rt, image: cfg.Image, args: cfg.Args, logger: logger}, nil
}

// Parse pipes text through the container and reads its CoNLL-U output.
// Every sentence gets docID and is validated.
func (p *ContainerParser) Parse(ctx context.Context, docID, text string) ([]types.Sentence, error) {
	var out bytes.Buffer
	if err := p.runtime.Run(ctx, p.image, p.args, strings.NewReader(text), &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docID, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("parser %s produced empty output for %s", p.image, docID)
	}

	sents, err := corpus.ReadCoNLLU(&out)
	if err != nil {
		return nil, fmt.Errorf("reading parser output for %s: %w", docID, err)
	}
	for i := range sents {
		sents[i].DocID = docID
		if err := sents[i].Validate(); err != nil {
			return nil, fmt.Errorf("parser output for %s: %w", docID, err)
		}
	}

	p.logger.Debug("Parsed document",
		zap.String("doc_id", docID),
		zap.String("image", p.image),
		zap.Int("sentences", len(sents)))
	return sents, nil
}

// BatchSummary holds the outcome of a batch parse run.
type BatchSummary struct {
	Parsed  int
	Skipped int
	Failed  int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Parsed + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ParseDir parses every .txt document in cfg.DocsDir into
// cfg.OutDir/<doc>.conllu, printing per-file status to w. Documents whose
// output is newer than the source are skipped. Cancellation stops the
// batch and returns the context error.
func ParseDir(ctx context.Context, p Parser, cfg types.ParseConfig, w io.Writer) (BatchSummary, error) {
	entries, err := os.ReadDir(cfg.DocsDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading documents directory %s: %w", cfg.DocsDir, err)
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	var summary BatchSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), docExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		docID := corpus.DocID(entry.Name())
		inPath := filepath.Join(cfg.DocsDir, entry.Name())
		outPath := filepath.Join(cfg.OutDir, docID+".conllu")

		if fresh, err := upToDate(inPath, outPath); err == nil && fresh {
			fmt.Fprintf(w, "skipped: %s (up to date)\n", docID)
			summary.Skipped++
			continue
		}

		if err := parseFile(ctx, p, docID, inPath, outPath); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			fmt.Fprintf(w, "failed:  %s (%v)\n", docID, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "parsed: %s\n", docID)
		summary.Parsed++
	}

	fmt.Fprintf(w, "\nBatch summary: %d parsed, %d skipped, %d failed (total: %d)\n",
		summary.Parsed, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

func parseFile(ctx context.Context, p Parser, docID, inPath, outPath string) error {
	text, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	sents, err := p.Parse(ctx, docID, string(text))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := corpus.WriteCoNLLU(&buf, sents); err != nil {
		return fmt.Errorf("encoding %s: %w", docID, err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// upToDate reports whether outPath exists and is not older than inPath.
func upToDate(inPath, outPath string) (bool, error) {
	inInfo, err := os.Stat(inPath)
	if err != nil {
		return false, err
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return false, err
	}
	return !inInfo.ModTime().After(outInfo.ModTime()), nil
}
