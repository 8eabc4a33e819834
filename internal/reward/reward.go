// Package reward scores a control outcome: per-zone temperature
// tracking, a noise penalty on total fan speed, and an efficiency bonus
// when both zones are already well controlled.
package reward

import (
	"math"

	"github.com/TIANLI0/QFan-Agent/internal/qlearn"
	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// Model is the immutable reward configuration for both zones.
type Model struct {
	targets    types.TargetsConfig
	hysteresis types.HysteresisConfig
	bands      types.RewardConfig
	noise      float64
	maxTotal   float64
}

// NewModel builds a reward model from configuration.
func NewModel(cfg types.Config) *Model {
	return &Model{
		targets:    cfg.Targets,
		hysteresis: cfg.Hysteresis,
		bands:      cfg.Reward,
		noise:      cfg.QLearning.NoisePenalty,
		maxTotal:   float64(cfg.Fans.MaxTotalSpeed()),
	}
}

// Score rates the outcome of running action a while the smoothed zone
// readings were radMean and chsMean. Higher is better.
func (m *Model) Score(radMean, chsMean float64, a qlearn.Action) float64 {
	radErr := math.Abs(radMean - m.targets.Radiator)
	chsErr := math.Abs(chsMean - m.targets.Storage)

	reward := zoneScore(radErr, m.hysteresis.Radiator, m.bands.Radiator)
	reward += zoneScore(chsErr, m.hysteresis.Storage, m.bands.Storage)

	total := float64(a.TotalSpeed())
	reward -= total / m.maxTotal * m.noise

	// Efficiency bonus only when both zones sit inside their excellent
	// bands: low fan speed is rewarded precisely when cooling headroom
	// exists.
	if radErr <= m.bands.Radiator.ExcellentLimit && chsErr <= m.bands.Storage.ExcellentLimit {
		reward += (m.maxTotal - total) / m.maxTotal * m.bands.EfficiencyBonus
		if radMean <= m.targets.Radiator && chsMean <= m.targets.Storage {
			reward += m.bands.CoolBonus
		}
	}

	return reward
}

// zoneScore is the piecewise per-zone term, by absolute error from
// target.
func zoneScore(err, hysteresis float64, b types.RewardBands) float64 {
	switch {
	case err <= hysteresis:
		return b.PerfectBase - err*b.PerfectSlope
	case err <= b.ExcellentLimit:
		return b.ExcellentBase - err*b.ExcellentSlope
	case err <= b.GoodLimit:
		return b.GoodBase - err*b.GoodSlope
	default:
		return -err * b.FarSlope
	}
}
