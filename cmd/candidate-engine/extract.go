// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/candidate-engine/internal/corpus"
	"github.com/pdiddy/candidate-engine/internal/extract"
	"github.com/pdiddy/candidate-engine/internal/logging"
	"github.com/pdiddy/candidate-engine/internal/matcher"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build candidate sets from a corpus with a matcher pipeline",
	Long: `Extract loads a matcher pipeline and a corpus of parsed sentences and
writes the resulting candidate set. The pipeline's extract section decides
whether entity candidates (one matcher) or relation candidates (two
matchers, Cartesian product per sentence) are produced.

With --batch every corpus file becomes its own candidate set in --out-dir,
and files whose set is newer than both the corpus file and the pipeline
are skipped.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	if cfg.Extraction.Pipeline == "" {
		return fmt.Errorf("--pipeline is required")
	}
	if cfg.Corpus.Dir == "" {
		return fmt.Errorf("--corpus is required")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := matcher.LoadPipeline(cfg.Extraction.Pipeline)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	if cfg.Extraction.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Extraction.Timeout)
		defer cancel()
	}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	if metricsFile != "" {
		defer func() {
			if err := extract.WriteMetrics(metricsFile); err != nil {
				logger.Warn("Writing metrics failed", zap.String("path", metricsFile), zap.Error(err))
			}
		}()
	}

	opts := []extract.Option{
		extract.WithWorkers(cfg.Extraction.Workers),
		extract.WithMaxPairs(cfg.Extraction.MaxPairs),
		extract.WithLogger(logger),
	}

	batch, _ := cmd.Flags().GetBool("batch")
	if batch {
		return runExtractBatch(ctx, p, cfg.Corpus.Dir, opts)
	}

	sents, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		return err
	}

	set, err := extract.Run(ctx, sents, p, opts...)
	if err != nil {
		var incomplete *extract.IncompleteError
		if errors.As(err, &incomplete) {
			return fmt.Errorf("extraction stopped after %d of %d sentences: %w",
				incomplete.Processed, incomplete.Total, err)
		}
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(cfg.Extraction.OutDir, corpus.DocID(cfg.Corpus.Dir)+extract.SetSuffix)
	}
	if err := set.Save(out); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "extracted %d %s candidates from %d sentences to %s\n",
		set.Len(), set.Kind(), len(sents), out)
	return nil
}

func runExtractBatch(ctx context.Context, p *matcher.Pipeline, corpusDir string, opts []extract.Option) error {
	cfg := engineConfig().Extraction
	summary, err := extract.ExtractAll(ctx, p, cfg, corpusDir, os.Stdout, opts...)
	fmt.Fprintf(os.Stdout, "\nextracted: %d, skipped: %d, failed: %d (total: %d)\n",
		summary.Extracted, summary.Skipped, summary.Failed, summary.Total())
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d corpus file(s) failed extraction", summary.Failed)
	}
	return nil
}

func init() {
	extractCmd.Flags().String("pipeline", "", "matcher pipeline definition (YAML)")
	extractCmd.Flags().String("corpus", "", "corpus file or directory of sentence files")
	extractCmd.Flags().String("out", "", "candidate set output file (default: <out-dir>/<corpus>"+extract.SetSuffix+")")
	extractCmd.Flags().String("out-dir", "store/extracted", "directory for candidate sets")
	extractCmd.Flags().Duration("timeout", 0, "abandon the run after this long (0 = no limit)")
	extractCmd.Flags().Int("workers", 0, "sentences matched concurrently (0 = GOMAXPROCS)")
	extractCmd.Flags().Int("max-pairs", 0, "fail when one sentence yields more relation pairs (0 = no limit)")
	extractCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format to this file")
	extractCmd.Flags().Bool("batch", false, "extract every corpus file in --corpus into its own set")

	bindFlag(extractCmd.Flags(), "extraction.pipeline", "pipeline")
	bindFlag(extractCmd.Flags(), "corpus.dir", "corpus")
	bindFlag(extractCmd.Flags(), "extraction.out_dir", "out-dir")
	bindFlag(extractCmd.Flags(), "extraction.timeout", "timeout")
	bindFlag(extractCmd.Flags(), "extraction.workers", "workers")
	bindFlag(extractCmd.Flags(), "extraction.max_pairs", "max-pairs")

	rootCmd.AddCommand(extractCmd)
}
