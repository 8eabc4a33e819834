// Package sensors gathers the temperatures the controller acts on:
// coolant from the cooler itself and drive temperatures from NVMe
// SMART data, with host sensors as a fallback.
package sensors

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// nvmeGlob matches the namespace block devices smart-log accepts.
var nvmeGlob = "/dev/nvme*n1"

func nvmeDevices() ([]string, error) {
	devices, err := filepath.Glob(nvmeGlob)
	if err != nil {
		return nil, err
	}
	sort.Strings(devices)
	return devices, nil
}

// DriveTemps queries every NVMe device via `nvme smart-log`. Devices
// that fail to answer are skipped; an error is returned only when no
// device yields a reading.
func DriveTemps(ctx context.Context) ([]types.DriveTemp, error) {
	devices, err := nvmeDevices()
	if err != nil {
		return nil, fmt.Errorf("glob nvme devices: %w", err)
	}

	var (
		temps   []types.DriveTemp
		lastErr error
	)
	for _, dev := range devices {
		out, err := exec.CommandContext(ctx, "nvme", "smart-log", dev).Output()
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", dev, err)
			continue
		}
		dt, err := driveReading(dev, string(out))
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", dev, err)
			continue
		}
		temps = append(temps, dt)
	}

	if len(temps) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%v: %w", lastErr, types.ErrUnavailable)
		}
		return nil, fmt.Errorf("no nvme devices found: %w", types.ErrUnavailable)
	}
	return temps, nil
}

// driveReading builds the zone sample for one device from its
// smart-log output.
func driveReading(dev, out string) (types.DriveTemp, error) {
	temp, err := parseSmartLogTemp(out)
	if err != nil {
		return types.DriveTemp{}, err
	}
	return types.DriveTemp{Device: dev, Temp: temp}, nil
}

// parseSmartLogTemp pulls the composite temperature out of smart-log
// output. Per-sensor lines ("Temperature Sensor 1 : ...") are ignored;
// only the composite "temperature" field counts.
func parseSmartLogTemp(out string) (float64, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "temperature" {
			continue
		}
		return parseTempValue(value)
	}
	return 0, fmt.Errorf("no temperature field in smart-log output")
}

// parseTempValue handles the formats nvme-cli has used over the years:
// "38 C", "38°C", "38 C (311 Kelvin)", and bare Kelvin values.
func parseTempValue(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, '('); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = strings.TrimSuffix(value, "C")
	value = strings.TrimSuffix(value, "°")
	value = strings.TrimSpace(value)

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable temperature %q", value)
	}
	// Raw SMART values may be in Kelvin.
	if n > 200 {
		n -= 273.15
	}
	return n, nil
}
