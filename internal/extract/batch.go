// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/candidate-engine/internal/corpus"
	"github.com/pdiddy/candidate-engine/internal/matcher"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

// SetSuffix names persisted candidate set files.
const SetSuffix = ".candidates.yaml"

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of corpus files processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any corpus file failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll runs p over every corpus file in corpusDir and writes one
// candidate set per file to cfg.OutDir as <doc>.candidates.yaml. Files
// whose output is newer than both the corpus file and the pipeline file
// are skipped. A failing file is reported and counted; cancellation stops
// the batch.
func ExtractAll(ctx context.Context, p *matcher.Pipeline, cfg types.ExtractionConfig, corpusDir string, w io.Writer, opts ...Option) (BatchSummary, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(corpusDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading corpus directory %s: %w", corpusDir, err)
	}

	var pipelineTime time.Time
	if cfg.Pipeline != "" {
		info, err := os.Stat(cfg.Pipeline)
		if err != nil {
			return BatchSummary{}, fmt.Errorf("stat pipeline %s: %w", cfg.Pipeline, err)
		}
		pipelineTime = info.ModTime()
	}

	opts = append([]Option{WithWorkers(cfg.Workers), WithMaxPairs(cfg.MaxPairs)}, opts...)

	var summary BatchSummary
	for _, entry := range entries {
		if entry.IsDir() || !corpus.Supported(entry.Name()) {
			continue
		}

		docID := corpus.DocID(entry.Name())
		inPath := filepath.Join(corpusDir, entry.Name())
		outPath := filepath.Join(cfg.OutDir, docID+SetSuffix)

		changed, err := hasChanged(inPath, outPath, pipelineTime)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", docID)
			summary.Skipped++
			continue
		}

		fmt.Fprintf(w, "extracting %s\n", docID)

		sents, err := corpus.LoadFile(inPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}

		set, err := Run(ctx, sents, p, opts...)
		if err != nil {
			var incomplete *IncompleteError
			if errors.As(err, &incomplete) {
				return summary, err
			}
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}

		if err := set.Save(outPath); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", docID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%d %s)\n", docID, set.Len(), set.Kind())
		summary.Extracted++
	}

	return summary, nil
}

// hasChanged reports whether outPath is missing or older than its inputs.
func hasChanged(inPath, outPath string, pipelineTime time.Time) (bool, error) {
	inInfo, err := os.Stat(inPath)
	if err != nil {
		return false, fmt.Errorf("stat corpus file %s: %w", inPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}

	return inInfo.ModTime().After(outInfo.ModTime()) || pipelineTime.After(outInfo.ModTime()), nil
}
