package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Evaluate the goal predicate without remediating",
	Long: `Evaluate the configured goal predicate once and exit. No candidate
is executed and no state is written.

Exit code 0 means the goal is currently achieved.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	collector := buildCollector(cfg, logger)
	goal, err := buildGoal(cfg, collector, logger)
	if err != nil {
		return err
	}

	if goal.Achieved(cmd.Context()) {
		fmt.Println("goal achieved")
		return nil
	}
	return fmt.Errorf("goal not achieved")
}
