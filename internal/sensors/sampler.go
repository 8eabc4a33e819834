package sensors

import (
	"context"

	"go.uber.org/zap"

	"github.com/TIANLI0/QFan-Agent/internal/device"
	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// Sampler reads the radiator loop from the cooler and drive
// temperatures from NVMe SMART data, falling back to host sensors.
type Sampler struct {
	mgr *device.Manager
	lg  *zap.Logger
}

func NewSampler(mgr *device.Manager, lg *zap.Logger) *Sampler {
	return &Sampler{mgr: mgr, lg: lg}
}

// Radiator returns the coolant loop temperature in °C.
func (s *Sampler) Radiator(ctx context.Context) (float64, error) {
	return s.mgr.Temperature(ctx)
}

// Storage returns one reading per drive. nvme-cli is authoritative;
// hwmon fills in when it is missing.
func (s *Sampler) Storage(ctx context.Context) ([]types.DriveTemp, error) {
	temps, err := DriveTemps(ctx)
	if err == nil {
		return temps, nil
	}
	s.lg.Debug("nvme smart-log unavailable, trying host sensors", zap.Error(err))

	temps, hostErr := HostDriveTemps(ctx)
	if hostErr != nil {
		return nil, err
	}
	return temps, nil
}
