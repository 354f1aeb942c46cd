// Package logging builds the remedyd zap logger.
//
// It wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - JSON or console encoding selected by config
//   - Optional OpenTelemetry log export via the otelzap bridge
//   - Context field injection for run and cycle correlation
//
// Create a logger from config:
//
//	logger, err := logging.New(cfg.Logging, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync(logger)
//
// Correlate log lines with the run that produced them:
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info("cycle finished", logging.ContextFields(ctx)...)
package logging
