package qlearn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDefaultsToZero(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, 0.0, tbl.Get(State{1, 2}, Action{50, 50}))
	assert.False(t, tbl.Known(State{1, 2}))
	assert.Equal(t, 0, tbl.States())
}

func TestUpdateInitializesFromZero(t *testing.T) {
	tbl := NewTable()
	s := State{11, 20}
	a := Action{50, 60}

	tbl.Update(s, a, 10.0, s, 0.1, 0.9)

	// Q = 0 + 0.1*(10 + 0.9*0 - 0); the self max includes the entry only
	// after the write, so the first target sees an empty successor row.
	assert.InDelta(t, 1.0, tbl.Get(s, a), 1e-9)
	assert.True(t, tbl.Known(s))
}

func TestUpdateUsesNextStateMax(t *testing.T) {
	tbl := NewTable()
	next := State{5, 5}
	tbl.Update(next, Action{30, 30}, 20.0, State{9, 9}, 1.0, 0.0) // Q(next,·)=20

	s := State{4, 4}
	a := Action{40, 40}
	tbl.Update(s, a, 1.0, next, 0.5, 0.9)

	// target = 1 + 0.9*20 = 19; Q = 0 + 0.5*19
	assert.InDelta(t, 9.5, tbl.Get(s, a), 1e-9)
}

func TestSelfTransitionConvergesToFixedPoint(t *testing.T) {
	tbl := NewTable()
	s := State{11, 20}
	a := Action{50, 50}
	alpha, gamma, reward := 0.1, 0.9, 30.0

	for i := 0; i < 5000; i++ {
		tbl.Update(s, a, reward, s, alpha, gamma)
	}

	// Fixed point of Q = r + gamma*Q is r/(1-gamma).
	assert.InDelta(t, reward/(1-gamma), tbl.Get(s, a), 1e-3)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Update(State{11, 20}, Action{50, 60}, 12.5, State{11, 20}, 0.1, 0.9)
	tbl.Update(State{11, 20}, Action{30, 30}, -4.0, State{12, 20}, 0.1, 0.9)
	tbl.Update(State{-1, 3}, Action{100, 100}, 2.0, State{0, 3}, 0.1, 0.9)

	path := filepath.Join(t.TempDir(), "q_table.json")
	require.NoError(t, tbl.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, tbl.States(), loaded.States())
	for s, actions := range tbl.q {
		for a, v := range actions {
			assert.InDelta(t, v, loaded.Get(s, a), 1e-12)
		}
	}
}

func TestLoadMissingFileYieldsEmptyTable(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.NoError(t, err)
	assert.Equal(t, 0, tbl.States())
}

func TestLoadCorruptFileYieldsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q_table.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	tbl, err := Load(path)
	assert.Error(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, 0, tbl.States())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q_table.json")

	tbl := NewTable()
	tbl.Update(State{1, 1}, Action{30, 30}, 1.0, State{1, 1}, 0.1, 0.9)
	require.NoError(t, tbl.Save(path))
	require.NoError(t, tbl.Save(path)) // overwrite is atomic

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "q_table.json", entries[0].Name())
}
