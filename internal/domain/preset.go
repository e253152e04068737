package domain

import (
	"fmt"
	"math"
	"time"
)

// BatchSize tunes how long a batch file stays writable.
type BatchSize int

const (
	BatchSizeSmall BatchSize = iota
	BatchSizeMedium
	BatchSizeLarge
)

// UploadFrequency tunes the base upload delay.
type UploadFrequency int

const (
	UploadFrequent UploadFrequency = iota
	UploadAverage
	UploadRare
)

// BundleType distinguishes long-lived apps from short-lived extensions,
// which need their data out quickly.
type BundleType int

const (
	BundleApp BundleType = iota
	BundleExtension
)

// ParseBatchSize parses "small", "medium" or "large".
func ParseBatchSize(s string) (BatchSize, error) {
	switch s {
	case "small":
		return BatchSizeSmall, nil
	case "medium":
		return BatchSizeMedium, nil
	case "large":
		return BatchSizeLarge, nil
	}
	return BatchSizeMedium, fmt.Errorf("unknown batch size %q", s)
}

// ParseUploadFrequency parses "frequent", "average" or "rare".
func ParseUploadFrequency(s string) (UploadFrequency, error) {
	switch s {
	case "frequent":
		return UploadFrequent, nil
	case "average":
		return UploadAverage, nil
	case "rare":
		return UploadRare, nil
	}
	return UploadAverage, fmt.Errorf("unknown upload frequency %q", s)
}

// StoragePreset bounds the batch files of one storage directory.
type StoragePreset struct {
	MaxFileSize        uint64
	MaxDirectorySize   uint64
	MaxFileAgeForWrite time.Duration
	MinFileAgeForRead  time.Duration
	MaxFileAgeForRead  time.Duration
	MaxObjectsInFile   int
	MaxObjectSize      uint64
}

// UploadPreset drives the upload pace. InitialUploadDelay seeds the first
// run of a worker; DefaultUploadDelay seeds every restart.
type UploadPreset struct {
	InitialUploadDelay    time.Duration
	DefaultUploadDelay    time.Duration
	MinUploadDelay        time.Duration
	MaxUploadDelay        time.Duration
	UploadDelayChangeRate float64
}

// PerformancePreset is the immutable tuning object shared by storage and upload.
type PerformancePreset struct {
	StoragePreset
	UploadPreset
}

// Storage defaults shared by every preset.
const (
	DefaultMaxFileSize       uint64 = 4 << 20   // 4 MiB
	DefaultMaxDirectorySize  uint64 = 512 << 20 // 512 MiB
	DefaultMaxFileAgeForRead        = 18 * time.Hour
	DefaultMaxObjectsInFile         = 500
	DefaultMaxObjectSize     uint64 = 512 << 10 // 512 KiB
)

type uploadDelayFactors struct {
	initial    float64
	dflt       float64
	min        float64
	max        float64
	changeRate float64
}

// NewPerformancePreset derives a preset from coarse tuning knobs.
func NewPerformancePreset(size BatchSize, freq UploadFrequency, bundle BundleType) PerformancePreset {
	var meanFileAge time.Duration
	switch size {
	case BatchSizeSmall:
		meanFileAge = 3 * time.Second
	case BatchSizeLarge:
		meanFileAge = 35 * time.Second
	default:
		meanFileAge = 10 * time.Second
	}

	var minUploadDelay time.Duration
	switch freq {
	case UploadFrequent:
		minUploadDelay = 500 * time.Millisecond
	case UploadRare:
		minUploadDelay = 5 * time.Second
	default:
		minUploadDelay = 2 * time.Second
	}

	factors := uploadDelayFactors{initial: 5, dflt: 5, min: 1, max: 10, changeRate: 0.1}
	if bundle == BundleExtension {
		factors.initial = 0.5
	}

	return PerformancePreset{
		StoragePreset: StoragePreset{
			MaxFileSize:        DefaultMaxFileSize,
			MaxDirectorySize:   DefaultMaxDirectorySize,
			MaxFileAgeForWrite: scale(meanFileAge, 0.95),
			MinFileAgeForRead:  scale(meanFileAge, 1.05),
			MaxFileAgeForRead:  DefaultMaxFileAgeForRead,
			MaxObjectsInFile:   DefaultMaxObjectsInFile,
			MaxObjectSize:      DefaultMaxObjectSize,
		},
		UploadPreset: UploadPreset{
			InitialUploadDelay:    scale(minUploadDelay, factors.initial),
			DefaultUploadDelay:    scale(minUploadDelay, factors.dflt),
			MinUploadDelay:        scale(minUploadDelay, factors.min),
			MaxUploadDelay:        scale(minUploadDelay, factors.max),
			UploadDelayChangeRate: factors.changeRate,
		},
	}
}

// DefaultPerformancePreset is the medium/average preset for apps.
func DefaultPerformancePreset() PerformancePreset {
	return NewPerformancePreset(BatchSizeMedium, UploadAverage, BundleApp)
}

// Validate checks that the preset bounds are consistent.
func (p PerformancePreset) Validate() error {
	switch {
	case p.MaxFileSize == 0:
		return fmt.Errorf("%w: max file size must be positive", ErrInvalidConfig)
	case p.MaxDirectorySize < p.MaxFileSize:
		return fmt.Errorf("%w: max directory size %d below max file size %d", ErrInvalidConfig, p.MaxDirectorySize, p.MaxFileSize)
	case p.MaxObjectsInFile <= 0:
		return fmt.Errorf("%w: max objects in file must be positive", ErrInvalidConfig)
	case p.MaxObjectSize == 0:
		return fmt.Errorf("%w: max object size must be positive", ErrInvalidConfig)
	case p.MaxFileAgeForRead < p.MinFileAgeForRead:
		return fmt.Errorf("%w: max file age for read below min file age for read", ErrInvalidConfig)
	case p.MinUploadDelay <= 0:
		return fmt.Errorf("%w: min upload delay must be positive", ErrInvalidConfig)
	case p.MaxUploadDelay < p.MinUploadDelay:
		return fmt.Errorf("%w: max upload delay below min upload delay", ErrInvalidConfig)
	case p.InitialUploadDelay <= 0 || p.InitialUploadDelay > p.MaxUploadDelay:
		return fmt.Errorf("%w: initial upload delay must be in (0, max upload delay]", ErrInvalidConfig)
	case p.DefaultUploadDelay < p.MinUploadDelay || p.DefaultUploadDelay > p.MaxUploadDelay:
		return fmt.Errorf("%w: default upload delay must be within [min, max] upload delay", ErrInvalidConfig)
	case p.UploadDelayChangeRate <= 0 || p.UploadDelayChangeRate >= 1:
		return fmt.Errorf("%w: upload delay change rate must be in (0, 1)", ErrInvalidConfig)
	}
	return nil
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(math.Round(float64(d) * factor))
}
