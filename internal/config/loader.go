// Package config provides configuration loading for remedyd.
package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces remedyd environment overrides.
	envPrefix = "REMEDYD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (REMEDYD_ENGINE_MAX_CYCLES, ...)
//  2. YAML config file (~/.config/remedyd/config.yaml by default)
//  3. Hardcoded defaults
//
// Config files must be owner-only (0600 on unix) and at most 1MB; a
// missing file is fine; defaults plus environment apply.
//
// Environment variables map to config keys by stripping the REMEDYD_
// prefix, lowercasing, and splitting section from field on the first
// underscore: REMEDYD_ENGINE_MAX_CYCLES → engine.max_cycles.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "remedyd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate through the descriptor to avoid a
		// TOCTOU race between stat and read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		section, field, ok := strings.Cut(lower, "_")
		if !ok {
			return lower
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills zero values with documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}
	if cfg.Engine.MaxCycles == 0 {
		cfg.Engine.MaxCycles = 10
	}
	if cfg.Engine.StepBudget == 0 {
		cfg.Engine.StepBudget = 25
	}
	if cfg.Engine.SampleBudget == 0 {
		cfg.Engine.SampleBudget = 1000
	}
	if cfg.Engine.ConvergenceThreshold == 0 {
		cfg.Engine.ConvergenceThreshold = 3
	}
	if cfg.Engine.SuccessRatio == 0 {
		cfg.Engine.SuccessRatio = 0.5
	}
	if cfg.Engine.CandidateTimeout == 0 {
		cfg.Engine.CandidateTimeout = 30 * time.Second
	}
	if cfg.Engine.MonitorInterval == 0 {
		cfg.Engine.MonitorInterval = 60 * time.Second
	}
	if cfg.Reflection.RewardIncrement == 0 {
		cfg.Reflection.RewardIncrement = 0.15
	}
	if cfg.Reflection.FailurePenalty == 0 {
		cfg.Reflection.FailurePenalty = 0.05
	}
	if cfg.Reflection.RampThreshold == 0 {
		cfg.Reflection.RampThreshold = 3
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9464
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "remedyd")
	}
	return filepath.Join(home, ".local", "state", "remedyd")
}

// validateFileProperties rejects world-readable and oversized files.
// Permission bits are meaningless on Windows, so only size is checked
// there.
func validateFileProperties(info fs.FileInfo) error {
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			return fmt.Errorf("config file has permissions %04o, require 0600 (owner read/write only)", perm)
		}
	}
	return nil
}
