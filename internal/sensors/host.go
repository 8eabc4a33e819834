package sensors

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// HostDriveTemps reads drive temperatures from the host's hwmon
// sensors. Used when nvme-cli is unavailable or yields nothing.
func HostDriveTemps(ctx context.Context) ([]types.DriveTemp, error) {
	readings, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host sensors: %w", err)
	}

	temps := driveTempsFromReadings(readings)
	if len(temps) == 0 {
		return nil, fmt.Errorf("no drive sensors among %d host readings: %w",
			len(readings), types.ErrUnavailable)
	}
	return temps, nil
}

func driveTempsFromReadings(readings []sensors.TemperatureStat) []types.DriveTemp {
	var temps []types.DriveTemp
	for _, r := range readings {
		if !isDriveSensor(r.SensorKey) || r.Temperature <= 0 {
			continue
		}
		temps = append(temps, types.DriveTemp{Device: r.SensorKey, Temp: r.Temperature})
	}
	return temps
}

func isDriveSensor(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "nvme") || strings.Contains(key, "drivetemp")
}
