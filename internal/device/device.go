// Package device drives the cooling controller over USB HID: reading
// the coolant temperature from its status report and applying fixed
// fan speeds per channel.
package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

const (
	reportID   byte = 0x02
	reportSize      = 65

	cmdStatus   byte = 0x21
	cmdSetSpeed byte = 0x26

	readTimeout = 2 * time.Second
)

// Manager owns the HID handle. All report traffic is serialized behind
// the mutex; the device cannot interleave requests.
type Manager struct {
	mu      sync.Mutex
	dev     *hid.Device
	product string
	cfg     types.CoolerConfig
}

// NewManager prepares a manager for the configured cooler. The device
// is opened lazily on first use and reopened after errors.
func NewManager(cfg types.CoolerConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Init initializes the HID subsystem. Call once at startup.
func Init() error { return hid.Init() }

// Exit releases the HID subsystem. Call once at shutdown.
func Exit() error { return hid.Exit() }

func (m *Manager) ensureOpenLocked() error {
	if m.dev != nil {
		return nil
	}

	var path string
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if path == "" && strings.Contains(info.ProductStr, m.cfg.Product) {
			path = info.Path
			m.product = info.ProductStr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate hid devices: %w", err)
	}
	if path == "" {
		return fmt.Errorf("cooler %q not found", m.cfg.Product)
	}

	dev, err := hid.OpenPath(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", m.product, err)
	}
	m.dev = dev
	return nil
}

func (m *Manager) dropLocked() {
	if m.dev != nil {
		m.dev.Close()
		m.dev = nil
	}
}

// Close releases the device handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
}

// checksum is the low byte of the payload sum, excluding the sync
// prefix, matching the controller firmware.
func checksum(payload []byte) byte {
	var sum uint16
	for _, b := range payload[2:] {
		sum += uint16(b)
	}
	return byte(sum & 0xFF)
}

func frame(fields ...byte) []byte {
	cmd := append([]byte{0x5A, 0xA5}, fields...)
	cmd = append(cmd, checksum(cmd))

	buf := make([]byte, reportSize)
	buf[0] = reportID
	copy(buf[1:], cmd)
	return buf
}

func (m *Manager) sendLocked(fields ...byte) error {
	if _, err := m.dev.Write(frame(fields...)); err != nil {
		m.dropLocked()
		return err
	}
	return nil
}

// Temperature reads the coolant loop temperature from the status
// report, in °C.
func (m *Manager) Temperature(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := m.ensureOpenLocked(); err != nil {
		return 0, err
	}

	if err := m.sendLocked(cmdStatus, 0x02); err != nil {
		return 0, fmt.Errorf("status request: %w", err)
	}

	buf := make([]byte, reportSize)
	n, err := m.dev.ReadWithTimeout(buf, readTimeout)
	if err != nil {
		m.dropLocked()
		return 0, fmt.Errorf("status read: %w", err)
	}
	temp, err := parseStatusTemp(buf[:n])
	if err != nil {
		return 0, err
	}
	return temp, nil
}

// parseStatusTemp extracts the coolant temperature from a status
// report. The firmware reports tenths of a degree, little-endian, after
// the sync word, command echo and status byte.
func parseStatusTemp(report []byte) (float64, error) {
	// Skip the leading report ID if present.
	if len(report) > 0 && report[0] == reportID {
		report = report[1:]
	}
	if len(report) < 8 {
		return 0, fmt.Errorf("status report too short: %d bytes", len(report))
	}
	if report[0] != 0x5A || report[1] != 0xA5 {
		return 0, fmt.Errorf("bad status sync: %02x%02x", report[0], report[1])
	}
	if report[2] != cmdStatus {
		return 0, fmt.Errorf("unexpected status command echo: %02x", report[2])
	}

	raw := binary.LittleEndian.Uint16(report[4:6])
	temp := float64(raw) / 10.0
	if temp <= 0 || temp > 150 {
		return 0, fmt.Errorf("implausible coolant temperature %.1f°C", temp)
	}
	return temp, nil
}

// SetSpeed applies a fixed speed, in percent, to every channel of the
// group.
func (m *Manager) SetSpeed(ctx context.Context, group types.Group, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	channels := m.cfg.RadiatorChannels
	if group == types.GroupStorage {
		channels = m.cfg.StorageChannels
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.ensureOpenLocked(); err != nil {
		return err
	}

	for _, ch := range channels {
		if err := m.sendLocked(cmdSetSpeed, 0x05, byte(ch), byte(percent)); err != nil {
			return fmt.Errorf("set channel %d to %d%%: %w", ch, percent, err)
		}
	}
	return nil
}
