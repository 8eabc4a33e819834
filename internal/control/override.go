package control

import "github.com/TIANLI0/QFan-Agent/internal/types"

// Override is the emergency guard. It watches the most recent
// instantaneous readings, not the smoothed averages, so a sudden spike
// is never hidden by the history window.
type Override struct {
	radCritical float64
	chsCritical float64
	active      bool
}

// NewOverride builds the guard from the emergency thresholds.
func NewOverride(cfg types.EmergencyConfig) *Override {
	return &Override{
		radCritical: cfg.RadiatorCritical,
		chsCritical: cfg.StorageCritical,
	}
}

// Check evaluates the instantaneous readings. forced reports that
// maximum cooling must be applied this cycle; entered is true only on
// the transition into the critical condition, so notifications fire
// once per episode rather than every cycle.
func (o *Override) Check(radNow, chsNow float64) (forced, entered bool) {
	critical := radNow > o.radCritical || chsNow > o.chsCritical
	entered = critical && !o.active
	o.active = critical
	return critical, entered
}

// Active reports whether the last Check saw a critical condition.
func (o *Override) Active() bool { return o.active }
