package system

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// DefaultPowerSupplyDir is the Linux sysfs power supply class.
const DefaultPowerSupplyDir = "/sys/class/power_supply"

// BatteryReader reads battery state from sysfs.
type BatteryReader struct {
	dir string
}

// NewBatteryReader reads from dir, or DefaultPowerSupplyDir when empty.
func NewBatteryReader(dir string) *BatteryReader {
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	return &BatteryReader{dir: dir}
}

// Read returns the status of the first battery found. A machine without a
// battery reports BatteryUnknown.
func (r *BatteryReader) Read() (domain.BatteryStatus, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, "BAT*"))
	if err != nil {
		return domain.BatteryStatus{}, err
	}
	if len(matches) == 0 {
		return domain.BatteryStatus{State: domain.BatteryUnknown, Level: 1}, nil
	}
	bat := matches[0]

	status, err := readTrimmed(filepath.Join(bat, "status"))
	if err != nil {
		return domain.BatteryStatus{}, err
	}

	level := 1.0
	capacity, err := readTrimmed(filepath.Join(bat, "capacity"))
	switch {
	case err == nil:
		pct, err := strconv.Atoi(capacity)
		if err != nil {
			return domain.BatteryStatus{}, err
		}
		level = float64(pct) / 100
	case !errors.Is(err, fs.ErrNotExist):
		return domain.BatteryStatus{}, err
	}

	return domain.BatteryStatus{State: parseBatteryState(status), Level: level}, nil
}

func parseBatteryState(s string) domain.BatteryState {
	switch strings.ToLower(s) {
	case "discharging", "not charging":
		return domain.BatteryUnplugged
	case "charging":
		return domain.BatteryCharging
	case "full":
		return domain.BatteryFull
	default:
		return domain.BatteryUnknown
	}
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// BatteryMonitor polls a BatteryReader and publishes each reading.
type BatteryMonitor struct {
	reader   *BatteryReader
	publish  func(domain.BatteryStatus)
	interval time.Duration
	logger   ports.Logger
}

// NewBatteryMonitor publishes readings through publish, typically a
// provider's Set method.
func NewBatteryMonitor(reader *BatteryReader, publish func(domain.BatteryStatus), interval time.Duration, logger ports.Logger) *BatteryMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BatteryMonitor{
		reader:   reader,
		publish:  publish,
		interval: interval,
		logger:   logger,
	}
}

// Poll reads once and publishes the result. Read errors keep the last value.
func (m *BatteryMonitor) Poll(ctx context.Context) {
	status, err := m.reader.Read()
	if err != nil {
		m.logger.Debug("battery read failed", ports.Err(err))
		return
	}
	m.publish(status)
}

// Run polls until ctx is canceled.
func (m *BatteryMonitor) Run(ctx context.Context) {
	runPoller(ctx, m.interval, m.Poll)
}
