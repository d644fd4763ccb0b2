// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/candidate-engine/internal/logging"
	"github.com/pdiddy/candidate-engine/internal/parse"
)

var parseCmd = &cobra.Command{
	Use:   "parse [docs-dir]",
	Short: "Parse plain-text documents into CoNLL-U sentence files",
	Long: `Parse runs a containerised parser (docker or podman) over every .txt
document in the documents directory. The image reads document text on
stdin and writes CoNLL-U on stdout; each result is validated and written
to <out-dir>/<doc>.conllu. Documents with an up-to-date output are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	if len(args) > 0 {
		cfg.Parse.DocsDir = args[0]
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := parse.DetectRuntime()
	if err != nil {
		return err
	}
	p, err := parse.NewContainerParser(rt, cfg.Parse, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	summary, err := parse.ParseDir(ctx, p, cfg.Parse, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed parsing", summary.Failed)
	}
	return nil
}

func init() {
	parseCmd.Flags().String("image", "", "parser container image (reads text on stdin, writes CoNLL-U)")
	parseCmd.Flags().StringSlice("arg", nil, "extra argument for the parser entrypoint (repeatable)")
	parseCmd.Flags().String("docs-dir", "docs", "directory of .txt documents")
	parseCmd.Flags().String("out-dir", "corpus", "directory for .conllu output")

	bindFlag(parseCmd.Flags(), "parse.image", "image")
	bindFlag(parseCmd.Flags(), "parse.args", "arg")
	bindFlag(parseCmd.Flags(), "parse.docs_dir", "docs-dir")
	bindFlag(parseCmd.Flags(), "parse.out_dir", "out-dir")

	rootCmd.AddCommand(parseCmd)
}
