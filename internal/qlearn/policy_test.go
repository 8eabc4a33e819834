package qlearn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

func testSpace(t *testing.T) *Space {
	t.Helper()
	space, err := NewSpace(
		types.FanRange{Min: 30, Max: 100, Step: 10},
		types.FanRange{Min: 30, Max: 100, Step: 10},
	)
	require.NoError(t, err)
	return space
}

func qcfg(start, min, decay float64) types.QLearningConfig {
	return types.QLearningConfig{
		Alpha: 0.1, Gamma: 0.9,
		EpsilonStart: start, EpsilonMin: min, EpsilonDecay: decay,
	}
}

func TestUnseenStateExploresEvenAtZeroEpsilon(t *testing.T) {
	space := testSpace(t)
	p := NewPolicy(space, qcfg(0, 0, 0.99), rand.New(rand.NewSource(7)))
	tbl := NewTable()

	// Must not panic and must return a member of the space.
	a, explored := p.Choose(tbl, State{3, 9})
	assert.True(t, explored)
	assert.Contains(t, space.Actions(), a)
}

func TestExploitationPicksBestRecordedAction(t *testing.T) {
	space := testSpace(t)
	p := NewPolicy(space, qcfg(0, 0, 0.99), rand.New(rand.NewSource(7)))

	tbl := NewTable()
	s := State{11, 20}
	tbl.Update(s, Action{50, 50}, 10, s, 1.0, 0) // alpha 1, gamma 0: Q = reward
	tbl.Update(s, Action{30, 30}, 5, s, 1.0, 0)
	tbl.Update(s, Action{100, 100}, 2, s, 1.0, 0)

	a, explored := p.Choose(tbl, s)
	assert.False(t, explored)
	assert.Equal(t, Action{50, 50}, a)
}

func TestExploitationTieBreaksByEnumerationOrder(t *testing.T) {
	space := testSpace(t)
	p := NewPolicy(space, qcfg(0, 0, 0.99), rand.New(rand.NewSource(7)))

	tbl := NewTable()
	s := State{1, 1}
	// Equal values; {40,70} precedes {90,30} in enumeration order.
	tbl.Update(s, Action{90, 30}, 7, s, 1.0, 0)
	tbl.Update(s, Action{40, 70}, 7, s, 1.0, 0)

	for i := 0; i < 20; i++ {
		a, _ := p.Choose(tbl, s)
		assert.Equal(t, Action{40, 70}, a)
	}
}

func TestEpsilonDecayMonotoneAndBounded(t *testing.T) {
	p := NewPolicy(testSpace(t), qcfg(0.15, 0.05, 0.995), rand.New(rand.NewSource(1)))

	prev := p.Epsilon()
	for i := 0; i < 2000; i++ {
		p.Decay()
		eps := p.Epsilon()
		assert.LessOrEqual(t, eps, prev)
		assert.GreaterOrEqual(t, eps, 0.05)
		prev = eps
	}
	assert.InDelta(t, 0.05, p.Epsilon(), 1e-12)
}

func TestHighEpsilonExplores(t *testing.T) {
	space := testSpace(t)
	p := NewPolicy(space, qcfg(1.0, 1.0, 1.0), rand.New(rand.NewSource(3)))

	tbl := NewTable()
	s := State{2, 2}
	tbl.Update(s, Action{50, 50}, 100, s, 1.0, 0)

	seen := map[Action]bool{}
	for i := 0; i < 500; i++ {
		a, explored := p.Choose(tbl, s)
		assert.True(t, explored)
		seen[a] = true
	}
	// With epsilon 1 the whole space should get sampled broadly.
	assert.Greater(t, len(seen), 32)
}
