package config

import (
	"fmt"
	"time"
)

// EngineConfig tunes the remediation control loop.
type EngineConfig struct {
	// Target is substituted into catalog command templates.
	Target string `koanf:"target"`

	// MaxCycles bounds a full run.
	MaxCycles int `koanf:"max_cycles"`

	// StepBudget bounds plan→execute→observe→reflect steps per cycle.
	StepBudget int `koanf:"step_budget"`

	// SampleBudget bounds candidate selections per run.
	SampleBudget int `koanf:"sample_budget"`

	// ConvergenceThreshold is the consecutive-successful-cycles count
	// that converges the run.
	ConvergenceThreshold int `koanf:"convergence_threshold"`

	// SuccessRatio is the per-cycle effectiveness bar for counting the
	// cycle as successful.
	SuccessRatio float64 `koanf:"success_ratio"`

	// CandidateTimeout bounds each candidate execution.
	CandidateTimeout time.Duration `koanf:"candidate_timeout"`

	// MonitorInterval paces the background monitor after max cycles.
	MonitorInterval time.Duration `koanf:"monitor_interval"`

	// Seed fixes the sampling sequence; 0 derives from the clock.
	Seed int64 `koanf:"seed"`
}

// ReflectionConfig tunes the score update rule.
type ReflectionConfig struct {
	RewardIncrement float64 `koanf:"reward_increment"`
	FailurePenalty  float64 `koanf:"failure_penalty"`
	RampThreshold   int     `koanf:"ramp_threshold"`
}

// ProbeConfig selects fact sources.
type ProbeConfig struct {
	// EnvPrefix exposes environment variables as facts; empty disables.
	EnvPrefix string `koanf:"env_prefix"`

	// FactsFile is an optional YAML fact file.
	FactsFile string `koanf:"facts_file"`

	// Expectations is the gap-analysis table: required fact values.
	Expectations []ExpectationConfig `koanf:"expectations"`

	// ExecProbes run read-only commands whose trimmed output becomes a
	// fact.
	ExecProbes []ExecProbeConfig `koanf:"exec_probes"`

	// GoalCommand, when set, decides goal achievement by exit status
	// instead of the expectations table.
	GoalCommand string `koanf:"goal_command"`

	// CriticalCommand, when set, signals a critical condition by exiting
	// zero. It is polled before every candidate execution.
	CriticalCommand string `koanf:"critical_command"`
}

// ExpectationConfig is one gap-analysis expectation.
type ExpectationConfig struct {
	Fact  string `koanf:"fact"`
	Value string `koanf:"value"`
}

// ExecProbeConfig is one executable fact probe.
type ExecProbeConfig struct {
	// Fact is the fact name the probe's output is stored under.
	Fact string `koanf:"fact"`

	// Command is run through the shell; stdout is trimmed. It must be
	// read-only.
	Command string `koanf:"command"`

	// Timeout bounds the probe; 5s when zero.
	Timeout time.Duration `koanf:"timeout"`
}

// ExecutorConfig tunes the local subprocess executor.
type ExecutorConfig struct {
	// Shell is the interpreter; "sh" when empty.
	Shell string `koanf:"shell"`

	// PreStepCommand is run before downgrade-tier candidates. Empty
	// refuses such candidates.
	PreStepCommand string `koanf:"pre_step_command"`
}

// ServerConfig tunes the status HTTP server.
type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
}

// LoggingConfig tunes the zap logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, or error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`
}

// Config is the full remedyd configuration.
type Config struct {
	// CatalogPath points at a YAML catalog; empty selects the built-in
	// default catalog.
	CatalogPath string `koanf:"catalog_path"`

	// StateDir receives persisted artifacts, the audit trail, and the
	// run lock.
	StateDir string `koanf:"state_dir"`

	Engine     EngineConfig     `koanf:"engine"`
	Reflection ReflectionConfig `koanf:"reflection"`
	Probe      ProbeConfig      `koanf:"probe"`
	Executor   ExecutorConfig   `koanf:"executor"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// Validate checks cross-field requirements after defaults are applied.
func (c *Config) Validate() error {
	if c.Engine.MaxCycles <= 0 {
		return fmt.Errorf("engine.max_cycles must be positive")
	}
	if c.Engine.StepBudget <= 0 {
		return fmt.Errorf("engine.step_budget must be positive")
	}
	if c.Engine.SampleBudget <= 0 {
		return fmt.Errorf("engine.sample_budget must be positive")
	}
	if c.Engine.SuccessRatio <= 0 || c.Engine.SuccessRatio > 1 {
		return fmt.Errorf("engine.success_ratio must be in (0, 1]")
	}
	if c.Reflection.RewardIncrement < 0 || c.Reflection.RewardIncrement > 1 {
		return fmt.Errorf("reflection.reward_increment must be in [0, 1]")
	}
	if c.Reflection.FailurePenalty < 0 || c.Reflection.FailurePenalty > 1 {
		return fmt.Errorf("reflection.failure_penalty must be in [0, 1]")
	}
	for _, p := range c.Probe.ExecProbes {
		if p.Fact == "" || p.Command == "" {
			return fmt.Errorf("probe.exec_probes entries require fact and command")
		}
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
