// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/candidate-engine/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the candidate store (ingest, retrieve, export)",
	Long: `Store manages a local SQLite index built from candidate set files in
<store-dir>/extracted/. Use subcommands to index sets, query them, or
export them.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index candidate sets into the store",
	Long: `Ingest reads candidate set files from <store-dir>/extracted/, indexes
them in a SQLite database with FTS5 over sentence text, and writes an
export file. Unchanged sets are skipped on subsequent runs.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(engineConfig().Store)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	summary, err := s.Ingest(ctx, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d candidate set(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var storeRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query stored candidates with full-text search and filters",
	Long: `Retrieve searches stored candidates using FTS5 full-text search over
sentence text, structured filters (set, label, document), or both.
Use --sets to list the indexed candidate sets.`,
	RunE: runStoreRetrieve,
}

func runStoreRetrieve(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(engineConfig().Store)
	if err != nil {
		return err
	}
	defer s.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if listSets, _ := cmd.Flags().GetBool("sets"); listSets {
		sets, err := s.Sets(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(sets)
		}
		for _, info := range sets {
			fmt.Fprintf(os.Stdout, "%-30s  %-9s  %d\n", info.Name, info.Kind, info.Candidates)
		}
		return nil
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --set, --label, or --doc")
	}

	results, err := s.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(results)
	}
	return formatRetrieveOutput(results)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRetrieveOutput(results []store.QueryResult) error {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-6s  %-14s  %-40s  %s\n",
		"Set", "ID", "Sentence", "Spans", "Labels")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, r := range results {
		texts := make([]string, len(r.Spans))
		labels := make([]string, len(r.Spans))
		for i, sp := range r.Spans {
			texts[i] = sp.Text
			labels[i] = sp.Label
		}
		spans := truncate(strings.Join(texts, " | "), 40)
		fmt.Fprintf(os.Stdout, "%-20s  %-6d  %-14s  %-40s  %s\n",
			truncate(r.Set, 20), r.ID, fmt.Sprintf("%s/%d", truncate(r.DocID, 10), r.SentID),
			spans, strings.Join(labels, "/"))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored candidates to YAML or JSON",
	Long: `Export writes all stored candidates (or a filtered subset) to
<store-dir>/index/export.yaml or export.json. Supports the same filter
flags as retrieve for partial exports.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	s, err := store.NewStore(engineConfig().Store)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := s.ExportYAML(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to", s.ExportPath("yaml"))
	case "json":
		if err := s.ExportJSON(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to", s.ExportPath("json"))
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command, args []string) store.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	set, _ := cmd.Flags().GetString("set")
	label, _ := cmd.Flags().GetString("label")
	docID, _ := cmd.Flags().GetString("doc")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.QueryOptions{
		Query:      queryText,
		Set:        set,
		Label:      label,
		DocID:      docID,
		MaxResults: limit,
	}
}

func addFilterFlags(cmd *cobra.Command, purpose string) {
	cmd.Flags().String("query", "", "full-text search over sentence text"+purpose)
	cmd.Flags().String("set", "", "filter by candidate set name"+purpose)
	cmd.Flags().String("label", "", "filter by span label"+purpose)
	cmd.Flags().String("doc", "", "filter by document id"+purpose)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("store-dir", "store", "base directory for the store (contains extracted/, index/)")
	storeCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")
	bindFlag(storeCmd.PersistentFlags(), "store.dir", "store-dir")
	bindFlag(storeCmd.PersistentFlags(), "store.max_results", "max-results")

	// Retrieve flags.
	addFilterFlags(storeRetrieveCmd, "")
	storeRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeRetrieveCmd.Flags().Bool("sets", false, "list indexed candidate sets")
	storeRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	addFilterFlags(storeExportCmd, " for partial export")
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeRetrieveCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
