package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/audit"
	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/engine"
	"github.com/fyrsmithlabs/remedyd/internal/executor"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/monitor"
	"github.com/fyrsmithlabs/remedyd/internal/observer"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
	"github.com/fyrsmithlabs/remedyd/internal/reflection"
	"github.com/fyrsmithlabs/remedyd/internal/server"
)

var (
	// run command flags
	runMaxCycles int
	runSeed      int64
)

func init() {
	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", 0, "override engine.max_cycles")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "fix the sampling sequence for reproducible runs")
	onceCmd.Flags().Int64Var(&runSeed, "seed", 0, "fix the sampling sequence for reproducible runs")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the remediation loop until convergence or budget exhaustion",
	Long: `Run the full remediation loop: probe, plan, execute, observe, reflect,
cycle after cycle until the goal is verified, the cycle budget is spent,
or a critical condition forces an abort.

Exit code 0 means the run converged. Individual candidate failures never
affect the exit code; only the terminal status does.

Examples:
  # Remediate the service named in the config file
  remedyd run

  # Reproducible run against an explicit target
  remedyd run --target nginx --seed 42 --max-cycles 5`,
	RunE: runRun,
}

var onceCmd = &cobra.Command{
	Use:   "remediate-once",
	Short: "Run a single remediation cycle",
	Long: `Run exactly one remediation cycle and report the resulting status.
Useful from cron or a wrapper that manages its own cycle cadence.`,
	RunE: runOnce,
}

func runRun(cmd *cobra.Command, args []string) error {
	return executeRun(cmd.Context(), runMaxCycles)
}

func runOnce(cmd *cobra.Command, args []string) error {
	return executeRun(cmd.Context(), 1)
}

// executeRun wires the engine from config and drives it to a terminal
// status. maxCycles <= 0 keeps the configured budget.
func executeRun(parent context.Context, maxCycles int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	if maxCycles > 0 {
		cfg.Engine.MaxCycles = maxCycles
	}
	if runSeed != 0 {
		cfg.Engine.Seed = runSeed
	}
	if cfg.Engine.Target == "" {
		return fmt.Errorf("no target: set engine.target or pass --target")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock := engine.NewRunLock(cfg.StateDir)
	if err := lock.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer lock.Release()

	eng, trail, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer trail.Close()

	ctx = logging.WithRunID(ctx, trail.RunID())
	logger = logger.With(logging.ContextFields(ctx)...)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv, err = statusServer(cfg, logger, func() server.Status {
			st := eng.State()
			return server.Status{
				RunID:                trail.RunID(),
				Status:               string(st.Status),
				CycleIndex:           st.CycleIndex,
				ConsecutiveSuccesses: st.ConsecutiveSuccesses,
				EffectivenessRatio:   st.EffectivenessRatio,
				TierLevel:            st.TierLevel,
				SpaceSize:            eng.SpaceSize(),
				Sampled:              st.Sampled,
				Blacklisted:          eng.Scores().BlacklistSize(),
			}
		}, eng)
		if err != nil {
			return err
		}
		defer shutdownServer(srv, logger)
	}

	res, err := eng.Run(ctx)
	logger.Info("run result",
		zap.String("status", string(res.Status)),
		zap.Int("cycles", res.Cycles),
		zap.Int("attempts", res.Attempts),
		zap.Int("successes", res.Successes),
	)
	if err != nil && !errors.Is(err, engine.ErrCriticalCondition) {
		return err
	}

	switch res.Status {
	case engine.StatusConverged:
		return nil
	case engine.StatusCriticalAbort:
		return fmt.Errorf("run aborted: critical condition detected")
	default:
		return fmt.Errorf("run ended without convergence: %s", res.Status)
	}
}

// buildEngine assembles the engine and its audit trail from config.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, *audit.Trail, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	collector := buildCollector(cfg, logger)
	goal, err := buildGoal(cfg, collector, logger)
	if err != nil {
		return nil, nil, err
	}

	// With expectations configured, the open gap count doubles as the
	// observer's progress measure: fewer gaps after a non-zero exit still
	// count as partial progress.
	var progress observer.ProgressFunc
	if exps := expectations(cfg); len(exps) > 0 {
		progress = func(ctx context.Context) int {
			return len(probe.AnalyzeGaps(collector.Collect(ctx), exps))
		}
	}

	trail, err := audit.Open(auditPath(cfg), audit.NewRunID())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit trail: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Target:               cfg.Engine.Target,
		MaxCycles:            cfg.Engine.MaxCycles,
		StepBudget:           cfg.Engine.StepBudget,
		SampleBudget:         cfg.Engine.SampleBudget,
		ConvergenceThreshold: cfg.Engine.ConvergenceThreshold,
		SuccessRatio:         cfg.Engine.SuccessRatio,
		CandidateTimeout:     cfg.Engine.CandidateTimeout,
		Seed:                 cfg.Engine.Seed,
		StateDir:             cfg.StateDir,
	}, engine.Deps{
		Catalog:   cat,
		Collector: collector,
		Executor: &executor.Local{
			Shell:          cfg.Executor.Shell,
			PreStepCommand: cfg.Executor.PreStepCommand,
			Logger:         logger,
		},
		Goal:       goal,
		Critical:   buildCritical(cfg, logger),
		Trail:      trail,
		Metrics:    monitor.New(logger),
		Logger:     logger,
		Progress:   progress,
		Reflection: reflectionConfig(cfg),
	})
	if err != nil {
		trail.Close()
		return nil, nil, err
	}
	return eng, trail, nil
}

func reflectionConfig(cfg *config.Config) reflection.Config {
	return reflection.Config{
		RewardIncrement: cfg.Reflection.RewardIncrement,
		FailurePenalty:  cfg.Reflection.FailurePenalty,
		RampThreshold:   cfg.Reflection.RampThreshold,
	}
}

// statusServer starts the HTTP status server in the background.
func statusServer(cfg *config.Config, logger *zap.Logger, status server.StatusFunc, eng *engine.Engine) (*server.Server, error) {
	srv, err := server.NewServer(status, eng.Scores(), logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build status server: %w", err)
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	return srv, nil
}

func shutdownServer(srv *server.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("status server shutdown", zap.Error(err))
	}
}
