package qlearn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Table maps State -> Action -> learned value. Entries are created
// lazily on first update and never deleted; unseen pairs read as 0.
// A Table is owned by a single control loop and is not safe for
// concurrent use.
type Table struct {
	q map[State]map[Action]float64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{q: make(map[State]map[Action]float64)}
}

// Get returns the learned value for (s, a), defaulting to 0.
func (t *Table) Get(s State, a Action) float64 {
	return t.q[s][a]
}

// Known reports whether the state has any recorded actions.
func (t *Table) Known(s State) bool {
	return len(t.q[s]) > 0
}

// Actions returns the recorded action values for s, or nil.
func (t *Table) Actions(s State) map[Action]float64 {
	return t.q[s]
}

// States returns the number of states with at least one entry.
func (t *Table) States() int { return len(t.q) }

// MaxValue returns max over recorded actions of next, or 0 when next
// has no entries yet.
func (t *Table) MaxValue(next State) float64 {
	best := 0.0
	first := true
	for _, v := range t.q[next] {
		if first || v > best {
			best = v
			first = false
		}
	}
	return best
}

// Update applies the TD-control rule
// Q(s,a) += alpha * (reward + gamma*max_a' Q(next,a') - Q(s,a)),
// initializing the entry from 0 on first contact.
func (t *Table) Update(s State, a Action, reward float64, next State, alpha, gamma float64) {
	old := t.Get(s, a)
	target := reward + gamma*t.MaxValue(next)

	if t.q[s] == nil {
		t.q[s] = make(map[Action]float64)
	}
	t.q[s][a] = old + alpha*(target-old)
}

// Save serializes the table as JSON keyed by the "_"-joined decimal
// encodings of state and action. The write is crash-safe: a temp file
// in the same directory is atomically renamed over the previous table.
func (t *Table) Save(path string) error {
	flat := make(map[string]map[string]float64, len(t.q))
	for s, actions := range t.q {
		row := make(map[string]float64, len(actions))
		for a, v := range actions {
			row[a.Key()] = v
		}
		flat[s.Key()] = row
	}

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a previously saved table. A missing or corrupt file is not
// fatal: the returned table is empty and usable, with the error
// reported for logging. Malformed keys are skipped, not fatal.
func Load(path string) (*Table, error) {
	t := NewTable()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("read q-table %s: %w", path, err)
	}

	var flat map[string]map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return t, fmt.Errorf("parse q-table %s: %w", path, err)
	}

	for stateKey, row := range flat {
		s, err := ParseStateKey(stateKey)
		if err != nil {
			continue
		}
		for actionKey, v := range row {
			a, err := ParseActionKey(actionKey)
			if err != nil {
				continue
			}
			if t.q[s] == nil {
				t.q[s] = make(map[Action]float64)
			}
			t.q[s][a] = v
		}
	}
	return t, nil
}
