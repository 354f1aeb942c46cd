// Package main implements the remedyd CLI: an adaptive remediation
// engine that searches a combinatorial action space until a declared
// goal state is reached.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/executor"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

var (
	// configPath overrides the default config file location
	configPath string
	// target overrides engine.target from the config file
	targetFlag string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remedyd",
	Short: "Adaptive combinatorial remediation engine",
	Long: `remedyd drives a system toward a declared goal state by sampling
remediation candidates from a category x command x location x mutator x
escalation-tier space, observing each outcome, and adjusting sampling
weights until the goal is verified or budgets run out.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/remedyd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&targetFlag, "target", "", "remediation target substituted into command templates")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(monitorCmd)
}

// setup loads config and builds the logger shared by all subcommands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if targetFlag != "" {
		cfg.Engine.Target = targetFlag
	}
	logger, err := logging.New(cfg.Logging, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// loadCatalog resolves the configured catalog, falling back to the
// built-in default when no path is set.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", cfg.CatalogPath, err)
	}
	return cat, nil
}

// buildCollector assembles fact sources in override order: environment,
// then the facts file, then exec probes; later sources win on key
// collisions.
func buildCollector(cfg *config.Config, logger *zap.Logger) *probe.Collector {
	var sources []contract.FactSource
	if cfg.Probe.EnvPrefix != "" {
		sources = append(sources, &probe.EnvSource{Prefix: cfg.Probe.EnvPrefix})
	}
	if cfg.Probe.FactsFile != "" {
		sources = append(sources, &probe.FileSource{Path: cfg.Probe.FactsFile})
	}
	for _, p := range cfg.Probe.ExecProbes {
		sources = append(sources, &probe.ExecSource{Fact: p.Fact, Command: p.Command, Timeout: p.Timeout})
	}
	return probe.NewCollector(logger, sources...)
}

func expectations(cfg *config.Config) []probe.Expectation {
	exps := make([]probe.Expectation, 0, len(cfg.Probe.Expectations))
	for _, e := range cfg.Probe.Expectations {
		exps = append(exps, probe.Expectation{Fact: e.Fact, Value: e.Value})
	}
	return exps
}

// buildGoal derives the goal predicate: a goal command when configured,
// otherwise zero remaining gaps against the expectations table.
func buildGoal(cfg *config.Config, collector *probe.Collector, logger *zap.Logger) (contract.GoalPredicate, error) {
	if cfg.Probe.GoalCommand != "" {
		return shellPredicate(cfg, cfg.Probe.GoalCommand, logger), nil
	}
	exps := expectations(cfg)
	if len(exps) == 0 {
		return nil, fmt.Errorf("no goal declared: set probe.goal_command or probe.expectations")
	}
	return contract.GoalFunc(func(ctx context.Context) bool {
		snap := collector.Collect(ctx)
		return len(probe.AnalyzeGaps(snap, exps)) == 0
	}), nil
}

// buildCritical derives the critical check; nil disables it.
func buildCritical(cfg *config.Config, logger *zap.Logger) contract.CriticalCheck {
	if cfg.Probe.CriticalCommand == "" {
		return nil
	}
	pred := shellPredicate(cfg, cfg.Probe.CriticalCommand, logger)
	return contract.CriticalFunc(func(ctx context.Context) bool {
		return pred.Achieved(ctx)
	})
}

// shellPredicate treats a shell command's zero exit status as true.
func shellPredicate(cfg *config.Config, command string, logger *zap.Logger) contract.GoalPredicate {
	exec := &executor.Local{Shell: cfg.Executor.Shell, Logger: logger}
	return contract.GoalFunc(func(ctx context.Context) bool {
		res, err := exec.Execute(ctx, contract.ExecRequest{
			Command: command,
			Timeout: 10 * time.Second,
		})
		return err == nil && res.ExitStatus == 0
	})
}

func auditPath(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, "audit.jsonl")
}
