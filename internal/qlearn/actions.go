package qlearn

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// Action is one (radiator speed, storage speed) pair, in percent.
type Action struct {
	Radiator int
	Storage  int
}

// Key returns the persistent encoding of the action, decimal components
// joined by "_".
func (a Action) Key() string {
	return strconv.Itoa(a.Radiator) + "_" + strconv.Itoa(a.Storage)
}

// ParseActionKey reverses Action.Key.
func ParseActionKey(key string) (Action, error) {
	rad, chs, err := splitPairKey(key)
	if err != nil {
		return Action{}, fmt.Errorf("action key %q: %w", key, err)
	}
	return Action{Radiator: rad, Storage: chs}, nil
}

// TotalSpeed returns the combined speed of both groups.
func (a Action) TotalSpeed() int { return a.Radiator + a.Storage }

// Space is the immutable enumeration of all valid actions, built once
// from the configured fan ranges. Enumeration order is radiator speed
// ascending, then storage speed ascending; this order is the policy's
// tie-break order.
type Space struct {
	actions []Action
	max     Action
}

// NewSpace builds the action space. It fails on a configuration that
// would produce no actions.
func NewSpace(rad, chs types.FanRange) (*Space, error) {
	if rad.Step < 1 || chs.Step < 1 || rad.Max < rad.Min || chs.Max < chs.Min {
		return nil, fmt.Errorf("invalid fan ranges: radiator %+v, storage %+v", rad, chs)
	}

	var actions []Action
	for r := rad.Min; r <= rad.Max; r += rad.Step {
		for c := chs.Min; c <= chs.Max; c += chs.Step {
			actions = append(actions, Action{Radiator: r, Storage: c})
		}
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("empty action space")
	}
	return &Space{
		actions: actions,
		max:     Action{Radiator: rad.Max, Storage: chs.Max},
	}, nil
}

// Actions returns the enumeration. The slice must not be mutated.
func (s *Space) Actions() []Action { return s.actions }

// Len returns the number of actions.
func (s *Space) Len() int { return len(s.actions) }

// Random returns a uniformly random action.
func (s *Space) Random(rng *rand.Rand) Action {
	return s.actions[rng.Intn(len(s.actions))]
}

// Max returns the maximum-cooling action, used by the emergency path.
func (s *Space) Max() Action { return s.max }
