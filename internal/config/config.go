// Package config loads, validates and persists the agent configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// Load reads the configuration file at path. An empty path yields the
// defaults; a missing or malformed file is a startup error, the process
// must not run with a half-read configuration.
func Load(path string) (types.Config, error) {
	if path == "" {
		return types.GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := types.GetDefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return types.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back to path, creating parent directories as needed.
func Save(path string, cfg types.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Normalize clamps every tunable to its valid range, substituting the
// default when a value is out of bounds. The second return reports
// whether anything changed, so callers can write the fixed file back.
func Normalize(cfg types.Config) (types.Config, bool) {
	defaults := types.GetDefaultConfig()
	changed := false

	if cfg.Targets.Radiator < 15 || cfg.Targets.Radiator > 60 {
		cfg.Targets.Radiator = defaults.Targets.Radiator
		changed = true
	}
	if cfg.Targets.Storage < 30 || cfg.Targets.Storage > 75 {
		cfg.Targets.Storage = defaults.Targets.Storage
		changed = true
	}
	if cfg.Hysteresis.Radiator < 0.5 || cfg.Hysteresis.Radiator > 10 {
		cfg.Hysteresis.Radiator = defaults.Hysteresis.Radiator
		changed = true
	}
	if cfg.Hysteresis.Storage < 0.5 || cfg.Hysteresis.Storage > 10 {
		cfg.Hysteresis.Storage = defaults.Hysteresis.Storage
		changed = true
	}

	if r, c := normalizeRange(cfg.Fans.Radiator, defaults.Fans.Radiator); c {
		cfg.Fans.Radiator = r
		changed = true
	}
	if r, c := normalizeRange(cfg.Fans.Storage, defaults.Fans.Storage); c {
		cfg.Fans.Storage = r
		changed = true
	}

	if cfg.QLearning.Alpha <= 0 || cfg.QLearning.Alpha > 1 {
		cfg.QLearning.Alpha = defaults.QLearning.Alpha
		changed = true
	}
	if cfg.QLearning.Gamma < 0 || cfg.QLearning.Gamma >= 1 {
		cfg.QLearning.Gamma = defaults.QLearning.Gamma
		changed = true
	}
	if cfg.QLearning.EpsilonStart < 0 || cfg.QLearning.EpsilonStart > 1 {
		cfg.QLearning.EpsilonStart = defaults.QLearning.EpsilonStart
		changed = true
	}
	if cfg.QLearning.EpsilonMin < 0 || cfg.QLearning.EpsilonMin > cfg.QLearning.EpsilonStart {
		cfg.QLearning.EpsilonMin = min(defaults.QLearning.EpsilonMin, cfg.QLearning.EpsilonStart)
		changed = true
	}
	if cfg.QLearning.EpsilonDecay <= 0 || cfg.QLearning.EpsilonDecay > 1 {
		cfg.QLearning.EpsilonDecay = defaults.QLearning.EpsilonDecay
		changed = true
	}
	if cfg.QLearning.NoisePenalty < 0 || cfg.QLearning.NoisePenalty > 50 {
		cfg.QLearning.NoisePenalty = defaults.QLearning.NoisePenalty
		changed = true
	}
	if cfg.QLearning.UpdateMode != "trailing" && cfg.QLearning.UpdateMode != "immediate" {
		cfg.QLearning.UpdateMode = defaults.QLearning.UpdateMode
		changed = true
	}

	if cfg.Bucketing.Step < 1 || cfg.Bucketing.Step > 10 {
		cfg.Bucketing.Step = defaults.Bucketing.Step
		changed = true
	}
	if cfg.Bucketing.HistoryLength < 1 || cfg.Bucketing.HistoryLength > 60 {
		cfg.Bucketing.HistoryLength = defaults.Bucketing.HistoryLength
		changed = true
	}

	if cfg.Emergency.RadiatorCritical <= cfg.Targets.Radiator {
		cfg.Emergency.RadiatorCritical = defaults.Emergency.RadiatorCritical
		changed = true
	}
	if cfg.Emergency.StorageCritical <= cfg.Targets.Storage {
		cfg.Emergency.StorageCritical = defaults.Emergency.StorageCritical
		changed = true
	}

	if cfg.Loop.IntervalSeconds < 1 || cfg.Loop.IntervalSeconds > 600 {
		cfg.Loop.IntervalSeconds = defaults.Loop.IntervalSeconds
		changed = true
	}
	if cfg.Loop.BackoffSeconds < 1 || cfg.Loop.BackoffSeconds > cfg.Loop.IntervalSeconds {
		cfg.Loop.BackoffSeconds = min(defaults.Loop.BackoffSeconds, cfg.Loop.IntervalSeconds)
		changed = true
	}
	if cfg.Loop.SaveIntervalCycles < 1 || cfg.Loop.SaveIntervalCycles > 10000 {
		cfg.Loop.SaveIntervalCycles = defaults.Loop.SaveIntervalCycles
		changed = true
	}
	if cfg.Loop.CallTimeoutSeconds < 1 || cfg.Loop.CallTimeoutSeconds > cfg.Loop.IntervalSeconds {
		cfg.Loop.CallTimeoutSeconds = min(defaults.Loop.CallTimeoutSeconds, cfg.Loop.IntervalSeconds)
		changed = true
	}

	if cfg.Cooler.Product == "" {
		cfg.Cooler.Product = defaults.Cooler.Product
		changed = true
	}
	if len(cfg.Cooler.RadiatorChannels) == 0 {
		cfg.Cooler.RadiatorChannels = defaults.Cooler.RadiatorChannels
		changed = true
	}
	if len(cfg.Cooler.StorageChannels) == 0 {
		cfg.Cooler.StorageChannels = defaults.Cooler.StorageChannels
		changed = true
	}

	if cfg.Paths.QTable == "" {
		cfg.Paths.QTable = defaults.Paths.QTable
		changed = true
	}
	if cfg.Paths.Telemetry == "" {
		cfg.Paths.Telemetry = defaults.Paths.Telemetry
		changed = true
	}
	if cfg.Paths.Log == "" {
		cfg.Paths.Log = defaults.Paths.Log
		changed = true
	}
	if cfg.Paths.Lock == "" {
		cfg.Paths.Lock = defaults.Paths.Lock
		changed = true
	}

	return cfg, changed
}

func normalizeRange(r, def types.FanRange) (types.FanRange, bool) {
	changed := false
	if r.Min < 0 || r.Min > 100 {
		r.Min = def.Min
		changed = true
	}
	if r.Max <= r.Min || r.Max > 100 {
		r.Max = def.Max
		changed = true
	}
	if r.Max <= r.Min {
		r.Min, r.Max = def.Min, def.Max
		changed = true
	}
	if r.Step < 1 || r.Step > r.Max-r.Min {
		r.Step = def.Step
		changed = true
	}
	return r, changed
}
