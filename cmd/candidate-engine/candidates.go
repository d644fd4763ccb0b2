// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/candidate-engine/internal/extract"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Inspect persisted candidate sets",
}

var candidatesShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Render the candidates of a candidate set file",
	Long: `Show loads a candidate set, verifying its checksum, and prints one line
per candidate: id, sentence key, labels, and the sentence with the first
span in [[ ]] and the second in {{ }}. Use --json for one JSON object per
line instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidatesShow,
}

func runCandidatesShow(cmd *cobra.Command, args []string) error {
	set, err := extract.Load(args[0])
	if err != nil {
		return err
	}

	id, _ := cmd.Flags().GetInt("id")
	label, _ := cmd.Flags().GetString("label")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var r extract.Renderer = extract.TextRenderer{}
	if jsonOutput {
		r = extract.JSONRenderer{}
	}

	switch {
	case id >= 0:
		return set.Render(os.Stdout, id, r)
	case label != "":
		for _, cid := range set.ByLabel(label) {
			if err := set.Render(os.Stdout, cid, r); err != nil {
				return err
			}
		}
		return nil
	}

	for cid := range set.All() {
		if err := set.Render(os.Stdout, cid, r); err != nil {
			return err
		}
	}
	if !jsonOutput {
		fmt.Fprintf(os.Stderr, "\n%d %s candidates over %d sentences\n",
			set.Len(), set.Kind(), len(set.Sentences()))
	}
	return nil
}

func init() {
	candidatesShowCmd.Flags().Int("id", -1, "show only this candidate id")
	candidatesShowCmd.Flags().String("label", "", "show only candidates with a span carrying this label")
	candidatesShowCmd.Flags().Bool("json", false, "output one JSON object per candidate")

	candidatesCmd.AddCommand(candidatesShowCmd)
	rootCmd.AddCommand(candidatesCmd)
}
