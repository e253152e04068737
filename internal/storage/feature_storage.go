package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

const (
	authorizedDirName   = "v1"
	unauthorizedDirName = "intermediate-v1"
)

// Config describes the storage of one feature stream.
type Config struct {
	// RootDir holds one subdirectory per feature.
	RootDir string

	// Feature names the producer stream (e.g. "logs", "traces").
	Feature string

	Preset domain.StoragePreset
	Format domain.DataFormat

	// PurgeOnDeny deletes not-yet-uploaded authorized data when consent
	// becomes not granted.
	PurgeOnDeny bool
}

// FeatureStorage is the batch store of one feature stream. Writer and reader
// share a single lock, the stream's serialized context, so file mutation
// never runs concurrently with itself or with the read-eligibility scan.
type FeatureStorage struct {
	mu     sync.Mutex
	writer *ConsentAwareWriter
	reader *FileReader

	authorized   *Directory
	unauthorized *Directory
	logger       ports.Logger
}

// NewFeatureStorage opens both directories, purges stale quarantined data and
// subscribes to consent changes.
func NewFeatureStorage(cfg Config, consent ports.ConsentProvider, clock ports.DateProvider, logger ports.Logger) (*FeatureStorage, error) {
	if cfg.Feature == "" {
		return nil, fmt.Errorf("%w: feature name is required", domain.ErrInvalidConfig)
	}
	if clock == nil {
		clock = ports.SystemDateProvider{}
	}

	base := filepath.Join(cfg.RootDir, cfg.Feature)
	authorized, err := OpenDirectory(filepath.Join(base, authorizedDirName))
	if err != nil {
		return nil, err
	}
	unauthorized, err := OpenDirectory(filepath.Join(base, unauthorizedDirName))
	if err != nil {
		return nil, err
	}

	authorizedOrch := NewFilesOrchestrator(authorized, cfg.Preset, cfg.Format, clock, logger)
	unauthorizedOrch := NewFilesOrchestrator(unauthorized, cfg.Preset, cfg.Format, clock, logger)

	s := &FeatureStorage{
		reader:       NewFileReader(authorizedOrch, cfg.Format, logger),
		authorized:   authorized,
		unauthorized: unauthorized,
		logger:       logger,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	consent.Subscribe(s.onConsentChange)
	s.writer = NewConsentAwareWriter(consent.Current(), authorizedOrch, unauthorizedOrch, cfg.Format, cfg.PurgeOnDeny, logger)

	if err := s.writer.PurgePending(); err != nil {
		return nil, fmt.Errorf("purge stale pending data: %w", err)
	}
	return s, nil
}

func (s *FeatureStorage) onConsentChange(old, new domain.Consent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.ApplyConsent(old, new); err != nil {
		s.logger.Error("storage: consent migration failed",
			ports.String("from", old.String()),
			ports.String("to", new.String()),
			ports.Err(err),
		)
	}
}

// Write appends one record through the consent gate.
func (s *FeatureStorage) Write(record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Write(record)
}

// ReadNextBatch returns the oldest eligible authorized batch, or nil.
func (s *FeatureStorage) ReadNextBatch() (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader.ReadNextBatch()
}

// MarkBatchAsRead deletes the batch file.
func (s *FeatureStorage) MarkBatchAsRead(batch *domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader.MarkBatchAsRead(batch)
}

// MarkAllFilesAsReadable lifts the minimum read age for one drain pass.
func (s *FeatureStorage) MarkAllFilesAsReadable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reader.MarkAllFilesAsReadable()
}

// RestoreMinReadAge ends the drain pass started by MarkAllFilesAsReadable.
func (s *FeatureStorage) RestoreMinReadAge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reader.RestoreMinReadAge()
}

// AuthorizedSize returns the bytes waiting for upload.
func (s *FeatureStorage) AuthorizedSize() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized.Size()
}

// AuthorizedDir returns the path of the uploaded directory.
func (s *FeatureStorage) AuthorizedDir() string { return s.authorized.Path() }

// PendingDir returns the path of the quarantined directory.
func (s *FeatureStorage) PendingDir() string { return s.unauthorized.Path() }

var (
	_ ports.Writer = (*FeatureStorage)(nil)
	_ ports.Reader = (*FeatureStorage)(nil)
)
