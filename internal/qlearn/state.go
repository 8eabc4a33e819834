// Package qlearn implements the tabular Q-learning core: state
// discretization, the action space, the value table with persistence,
// and the epsilon-greedy policy.
package qlearn

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// State is a pair of discrete temperature buckets, radiator then
// storage. States compare by value and are usable as map keys.
type State struct {
	Radiator int
	Storage  int
}

// Bucket maps a temperature to its discrete bucket: floor(t/step).
// Negative temperatures produce valid negative buckets; rejecting
// implausible readings is the sampler's job.
func Bucket(temp, step float64) int {
	return int(math.Floor(temp / step))
}

// EncodeState buckets the smoothed readings of both zones.
func EncodeState(radMean, chsMean, step float64) State {
	return State{Radiator: Bucket(radMean, step), Storage: Bucket(chsMean, step)}
}

// Key returns the persistent encoding of the state: decimal components
// joined by "_". The encoding is reversible via ParseStateKey.
func (s State) Key() string {
	return strconv.Itoa(s.Radiator) + "_" + strconv.Itoa(s.Storage)
}

// ParseStateKey reverses State.Key.
func ParseStateKey(key string) (State, error) {
	rad, chs, err := splitPairKey(key)
	if err != nil {
		return State{}, fmt.Errorf("state key %q: %w", key, err)
	}
	return State{Radiator: rad, Storage: chs}, nil
}

func splitPairKey(key string) (int, int, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want 2 components, got %d", len(parts))
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
