package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvSource exposes environment variables under a prefix as facts. The
// prefix is stripped, the remainder lowercased with underscores mapped
// to dots: REMEDYD_FACT_SERVICE_STATE → service.state.
type EnvSource struct {
	// Prefix selects the variables; empty means no facts.
	Prefix string
}

// Name implements contract.FactSource.
func (s EnvSource) Name() string { return "env" }

// Facts implements contract.FactSource.
func (s EnvSource) Facts(_ context.Context) (map[string]string, error) {
	out := make(map[string]string)
	if s.Prefix == "" {
		return out, nil
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, s.Prefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(k, s.Prefix))
		name = strings.ReplaceAll(name, "_", ".")
		out[name] = v
	}
	return out, nil
}

// FileSource reads facts from a flat YAML mapping file.
type FileSource struct {
	// Path is the facts file. A missing file is an error the collector
	// absorbs as a partial snapshot.
	Path string
}

// Name implements contract.FactSource.
func (s FileSource) Name() string { return "file:" + s.Path }

// Facts implements contract.FactSource.
func (s FileSource) Facts(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}
	out := make(map[string]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse facts file: %w", err)
	}
	return out, nil
}

// ExecSource runs a read-only probe command and records its trimmed
// output under a single fact name. Probes are bounded by a short timeout
// so a hung probe cannot stall collection.
type ExecSource struct {
	// Fact is the fact name the output is stored under.
	Fact string

	// Command is run via the shell. It must be read-only; the collector
	// contract forbids mutating the target.
	Command string

	// Timeout defaults to 5s when zero.
	Timeout time.Duration
}

// Name implements contract.FactSource.
func (s ExecSource) Name() string { return "exec:" + s.Fact }

// Facts implements contract.FactSource.
func (s ExecSource) Facts(ctx context.Context) (map[string]string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "sh", "-c", s.Command).Output()
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", s.Fact, err)
	}
	return map[string]string{s.Fact: strings.TrimSpace(string(out))}, nil
}

// StaticSource serves a fixed fact map. Used by tests and by embedders
// that already know their environment.
type StaticSource struct {
	SourceName string
	Values     map[string]string
}

// Name implements contract.FactSource.
func (s StaticSource) Name() string {
	if s.SourceName == "" {
		return "static"
	}
	return s.SourceName
}

// Facts implements contract.FactSource.
func (s StaticSource) Facts(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		out[k] = v
	}
	return out, nil
}
