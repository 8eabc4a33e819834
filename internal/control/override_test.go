package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

func TestOverrideForcesOnCriticalRadiator(t *testing.T) {
	o := NewOverride(types.EmergencyConfig{RadiatorCritical: 60, StorageCritical: 80})

	forced, entered := o.Check(66, 50)
	assert.True(t, forced)
	assert.True(t, entered)
	assert.True(t, o.Active())
}

func TestOverrideEdgeTriggeredNotification(t *testing.T) {
	o := NewOverride(types.EmergencyConfig{RadiatorCritical: 60, StorageCritical: 80})

	// Rising edge fires exactly once while the condition persists.
	_, entered := o.Check(66, 50)
	assert.True(t, entered)
	for i := 0; i < 5; i++ {
		forced, entered := o.Check(67, 50)
		assert.True(t, forced)
		assert.False(t, entered)
	}

	// Clearing re-arms the edge.
	forced, entered := o.Check(40, 50)
	assert.False(t, forced)
	assert.False(t, entered)
	assert.False(t, o.Active())

	_, entered = o.Check(30, 85)
	assert.True(t, entered)
}

func TestOverrideBoundaryIsExclusive(t *testing.T) {
	o := NewOverride(types.EmergencyConfig{RadiatorCritical: 60, StorageCritical: 80})

	forced, _ := o.Check(60, 80)
	assert.False(t, forced)

	forced, _ = o.Check(60.1, 80)
	assert.True(t, forced)
}
