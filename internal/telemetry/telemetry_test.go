package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(Record{Time: time.Now(), FanRad: 50, FanChs: 50}))
	require.NoError(t, w.Close())

	// Reopen and append: no second header.
	w, err = NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(Record{Time: time.Now(), FanRad: 60, FanChs: 40}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3) // header + 2 rows
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	want := Record{
		Time: ts, RadAvg: 34.52, ChsAvg: 58.11,
		FanRad: 70, FanChs: 40, Reward: 41.37, Epsilon: 0.0832, QStates: 17,
	}

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(want))
	require.NoError(t, w.Close())

	got, err := ReadLastN(path, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Time.Equal(ts))
	assert.InDelta(t, want.RadAvg, got[0].RadAvg, 1e-9)
	assert.InDelta(t, want.Epsilon, got[0].Epsilon, 1e-9)
	assert.Equal(t, want.FanRad, got[0].FanRad)
	assert.Equal(t, want.QStates, got[0].QStates)
}

func TestReadLastNTailsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")

	w, err := NewWriter(path)
	require.NoError(t, err)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Record(Record{Time: base.Add(time.Duration(i) * time.Minute), QStates: i}))
	}
	require.NoError(t, w.Close())

	got, err := ReadLastN(path, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 7, got[0].QStates)
	assert.Equal(t, 9, got[2].QStates)
}
