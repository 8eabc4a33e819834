package qlearn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

func TestSpaceSize(t *testing.T) {
	tests := []struct {
		rad, chs types.FanRange
		want     int
	}{
		{types.FanRange{Min: 30, Max: 100, Step: 10}, types.FanRange{Min: 30, Max: 100, Step: 10}, 64},
		{types.FanRange{Min: 0, Max: 100, Step: 25}, types.FanRange{Min: 50, Max: 100, Step: 50}, 10},
		{types.FanRange{Min: 40, Max: 40, Step: 5}, types.FanRange{Min: 40, Max: 40, Step: 5}, 1},
	}
	for _, tt := range tests {
		space, err := NewSpace(tt.rad, tt.chs)
		require.NoError(t, err)
		assert.Equal(t, tt.want, space.Len())
	}
}

func TestSpaceEnumerationOrder(t *testing.T) {
	space, err := NewSpace(
		types.FanRange{Min: 30, Max: 50, Step: 10},
		types.FanRange{Min: 30, Max: 40, Step: 10},
	)
	require.NoError(t, err)

	want := []Action{
		{30, 30}, {30, 40},
		{40, 30}, {40, 40},
		{50, 30}, {50, 40},
	}
	assert.Equal(t, want, space.Actions())
	assert.Equal(t, Action{Radiator: 50, Storage: 40}, space.Max())
}

func TestSpaceRejectsDegenerateRanges(t *testing.T) {
	_, err := NewSpace(types.FanRange{Min: 50, Max: 30, Step: 10}, types.FanRange{Min: 30, Max: 100, Step: 10})
	assert.Error(t, err)

	_, err = NewSpace(types.FanRange{Min: 30, Max: 100, Step: 0}, types.FanRange{Min: 30, Max: 100, Step: 10})
	assert.Error(t, err)
}

func TestSpaceRandomStaysInSpace(t *testing.T) {
	space, err := NewSpace(
		types.FanRange{Min: 30, Max: 100, Step: 10},
		types.FanRange{Min: 30, Max: 100, Step: 10},
	)
	require.NoError(t, err)

	members := map[Action]bool{}
	for _, a := range space.Actions() {
		members[a] = true
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		assert.True(t, members[space.Random(rng)])
	}
}

func TestActionKeyRoundTrip(t *testing.T) {
	a := Action{Radiator: 70, Storage: 40}
	got, err := ParseActionKey(a.Key())
	assert.NoError(t, err)
	assert.Equal(t, a, got)
	assert.Equal(t, "70_40", a.Key())
	assert.Equal(t, 110, a.TotalSpeed())
}
