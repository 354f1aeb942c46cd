package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
)

var analyzeJSON bool

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output results as JSON")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Probe the system and report remaining gaps",
	Long: `Collect a probe snapshot and compare it against the configured
expectations. No remediation is executed.

Exit code 0 means no gaps remain; 1 means at least one gap was found.

Examples:
  # Human-readable gap table
  remedyd analyze

  # Machine-readable output
  remedyd analyze --json`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	exps := expectations(cfg)
	if len(exps) == 0 {
		return fmt.Errorf("no expectations configured: set probe.expectations")
	}

	collector := buildCollector(cfg, logger)
	snap := collector.Collect(cmd.Context())
	gaps := probe.AnalyzeGaps(snap, exps)

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Facts      int         `json:"facts"`
			Incomplete bool        `json:"incomplete"`
			Gaps       []probe.Gap `json:"gaps"`
		}{len(snap.Facts), snap.Incomplete, gaps}); err != nil {
			return err
		}
	} else {
		fmt.Printf("facts collected: %d (incomplete: %v)\n", len(snap.Facts), snap.Incomplete)
		if len(gaps) == 0 {
			fmt.Println("no gaps: system matches expectations")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tFACT\tEXPECTED\tACTUAL")
			for _, g := range gaps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.Kind, g.Target, g.Expected, g.Actual)
			}
			w.Flush()
		}
	}

	if len(gaps) > 0 {
		return fmt.Errorf("%d gap(s) found", len(gaps))
	}
	return nil
}
