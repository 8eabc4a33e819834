package sensors

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

const smartLogSample = `Smart Log for NVME device:nvme0n1 namespace-id:ffffffff
critical_warning                        : 0
temperature                             : 42 C (315 Kelvin)
available_spare                         : 100%
Temperature Sensor 1                    : 42 C (315 Kelvin)
Temperature Sensor 2                    : 49 C (322 Kelvin)
`

func TestParseSmartLogTemp(t *testing.T) {
	temp, err := parseSmartLogTemp(smartLogSample)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, temp, 1e-9)
}

func TestParseSmartLogTempIgnoresSensorLines(t *testing.T) {
	out := `Temperature Sensor 1 : 55 C
temperature           : 38 C
`
	temp, err := parseSmartLogTemp(out)
	require.NoError(t, err)
	assert.InDelta(t, 38.0, temp, 1e-9)
}

func TestParseSmartLogTempMissing(t *testing.T) {
	_, err := parseSmartLogTemp("critical_warning : 0\n")
	assert.Error(t, err)
}

func TestParseTempValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"38 C", 38},
		{"38°C", 38},
		{"42 C (315 Kelvin)", 42},
		{"311", 37.85},
		{"36.5 C", 36.5},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseTempValue(tc.in)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestParseTempValueGarbage(t *testing.T) {
	_, err := parseTempValue("hot")
	assert.Error(t, err)
}

func TestDriveReading(t *testing.T) {
	dt, err := driveReading("/dev/nvme0n1", smartLogSample)
	require.NoError(t, err)
	assert.Equal(t, types.DriveTemp{Device: "/dev/nvme0n1", Temp: 42.0}, dt)
}

func TestDriveReadingBadOutput(t *testing.T) {
	_, err := driveReading("/dev/nvme0n1", "critical_warning : 0\n")
	assert.Error(t, err)
}

func TestDriveTempsNoDevicesUnavailable(t *testing.T) {
	orig := nvmeGlob
	nvmeGlob = filepath.Join(t.TempDir(), "nvme*n1")
	defer func() { nvmeGlob = orig }()

	_, err := DriveTemps(context.Background())
	assert.ErrorIs(t, err, types.ErrUnavailable)
}
