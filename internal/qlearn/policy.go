package qlearn

import (
	"math/rand"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// Policy selects actions epsilon-greedily over a Table and owns the
// epsilon decay schedule.
type Policy struct {
	space   *Space
	epsilon float64
	min     float64
	decay   float64
	rng     *rand.Rand
}

// NewPolicy builds a policy from the learner configuration.
func NewPolicy(space *Space, cfg types.QLearningConfig, rng *rand.Rand) *Policy {
	return &Policy{
		space:   space,
		epsilon: cfg.EpsilonStart,
		min:     cfg.EpsilonMin,
		decay:   cfg.EpsilonDecay,
		rng:     rng,
	}
}

// Choose returns the action for state s and whether it was exploratory.
// A state with no recorded values always explores, even at epsilon 0.
// Exploitation scans the action space in enumeration order and keeps
// the first strictly-best recorded value, so ties break deterministically
// toward the earliest action.
func (p *Policy) Choose(t *Table, s State) (Action, bool) {
	if !t.Known(s) || p.rng.Float64() < p.epsilon {
		return p.space.Random(p.rng), true
	}

	recorded := t.Actions(s)
	var best Action
	bestVal := 0.0
	found := false
	for _, a := range p.space.Actions() {
		v, ok := recorded[a]
		if !ok {
			continue
		}
		if !found || v > bestVal {
			best, bestVal, found = a, v, true
		}
	}
	if !found {
		// Recorded actions all fall outside the configured space, e.g.
		// after a fan range change. Explore.
		return p.space.Random(p.rng), true
	}
	return best, false
}

// Decay lowers epsilon by the configured factor, bounded below by the
// configured minimum. Called exactly once per control cycle.
func (p *Policy) Decay() {
	p.epsilon = max(p.min, p.epsilon*p.decay)
}

// Epsilon returns the current exploration probability.
func (p *Policy) Epsilon() float64 { return p.epsilon }
