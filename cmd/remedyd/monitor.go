package main

import (
	"errors"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/audit"
	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/engine"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/scoring"
	"github.com/fyrsmithlabs/remedyd/internal/server"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Observe the system in the background without remediating",
	Long: `Watch the system at the configured interval, verifying the goal and
the critical condition without executing any candidate. The status HTTP
server stays up for the duration when server.enabled is set.

Catalog file changes are hot-reloaded; the status endpoint reports the
refreshed space size.

Exit code 0 means the goal was verified during monitoring.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock := engine.NewRunLock(cfg.StateDir)
	if err := lock.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer lock.Release()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	var current atomic.Pointer[catalog.Catalog]
	current.Store(cat)

	if cfg.CatalogPath != "" {
		watcher, err := catalog.NewWatcher(cfg.CatalogPath, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
		go func() {
			for reloaded := range watcher.Updates() {
				current.Store(reloaded)
			}
		}()
	}

	collector := buildCollector(cfg, logger)
	goal, err := buildGoal(cfg, collector, logger)
	if err != nil {
		return err
	}

	trail, err := audit.Open(auditPath(cfg), audit.NewRunID())
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer trail.Close()

	ctx = logging.WithRunID(ctx, trail.RunID())
	logger = logger.With(logging.ContextFields(ctx)...)

	if cfg.Server.Enabled {
		scores := scoring.New()
		srv, err := server.NewServer(func() server.Status {
			return server.Status{
				RunID:     trail.RunID(),
				Status:    "monitoring",
				SpaceSize: current.Load().SpaceSize(),
			}
		}, scores, logger, &server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port})
		if err != nil {
			return fmt.Errorf("failed to build status server: %w", err)
		}
		go func() {
			if err := srv.Start(); err != nil {
				logger.Warn("status server stopped", zap.Error(err))
			}
		}()
		defer shutdownServer(srv, logger)
	}

	mon := engine.NewBackgroundMonitor(
		collector,
		goal,
		buildCritical(cfg, logger),
		trail,
		cfg.Engine.MonitorInterval,
		logger,
	)
	err = mon.Run(ctx)
	switch {
	case err == nil:
		fmt.Println("goal verified")
		return nil
	case errors.Is(err, engine.ErrCriticalCondition):
		return fmt.Errorf("monitoring aborted: critical condition detected")
	default:
		return err
	}
}
