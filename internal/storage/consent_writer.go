package storage

import (
	"fmt"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// ConsentAwareWriter applies the consent gate to every write: granted records
// go to the authorized directory, pending records to the quarantined one, and
// records written without consent are dropped.
// It is not safe for concurrent use; FeatureStorage serializes access.
type ConsentAwareWriter struct {
	consent domain.Consent

	authorized   *FilesOrchestrator
	unauthorized *FilesOrchestrator

	authorizedWriter   *FileWriter
	unauthorizedWriter *FileWriter

	// purgeOnDeny also drops not-yet-uploaded authorized data on denial.
	purgeOnDeny bool
	logger      ports.Logger
}

// NewConsentAwareWriter creates a gate over two orchestrators.
func NewConsentAwareWriter(
	initial domain.Consent,
	authorized, unauthorized *FilesOrchestrator,
	format domain.DataFormat,
	purgeOnDeny bool,
	logger ports.Logger,
) *ConsentAwareWriter {
	return &ConsentAwareWriter{
		consent:            initial,
		authorized:         authorized,
		unauthorized:       unauthorized,
		authorizedWriter:   NewFileWriter(authorized, format),
		unauthorizedWriter: NewFileWriter(unauthorized, format),
		purgeOnDeny:        purgeOnDeny,
		logger:             logger,
	}
}

// Consent returns the consent the gate currently applies.
func (w *ConsentAwareWriter) Consent() domain.Consent { return w.consent }

// Write routes the record according to the current consent.
// Returns domain.ErrConsentNotGranted when the record is dropped.
func (w *ConsentAwareWriter) Write(record []byte) error {
	switch w.consent {
	case domain.ConsentGranted:
		return w.authorizedWriter.Write(record)
	case domain.ConsentPending:
		return w.unauthorizedWriter.Write(record)
	default:
		return domain.ErrConsentNotGranted
	}
}

// ApplyConsent migrates data for the transition old -> new and switches the
// write route. Migrations are idempotent, so replaying a transition is safe.
func (w *ConsentAwareWriter) ApplyConsent(old, new domain.Consent) error {
	w.consent = new

	switch {
	case old == domain.ConsentPending && new == domain.ConsentGranted:
		// New writes must land after the migrated files, never in an
		// authorized file older than them.
		w.authorized.CloseCurrent()
		w.unauthorized.CloseCurrent()
		moved, err := w.unauthorized.Directory().MoveAllTo(w.authorized.Directory())
		if err != nil {
			return fmt.Errorf("migrate pending data: %w", err)
		}
		w.logger.Info("consent granted, committed pending data", ports.Int("files", moved))
		return w.authorized.EnforceDirectoryLimit()

	case new == domain.ConsentNotGranted:
		w.unauthorized.CloseCurrent()
		if err := w.unauthorized.Directory().DeleteAll(); err != nil {
			return fmt.Errorf("purge pending data: %w", err)
		}
		if w.purgeOnDeny {
			w.authorized.CloseCurrent()
			if err := w.authorized.Directory().DeleteAll(); err != nil {
				return fmt.Errorf("purge authorized data: %w", err)
			}
		}
		w.logger.Info("consent not granted, purged buffered data", ports.Bool("purged_authorized", w.purgeOnDeny))
		return nil
	}
	return nil
}

// PurgePending deletes quarantined data left by a previous process, whose
// consent is unknown.
func (w *ConsentAwareWriter) PurgePending() error {
	w.unauthorized.CloseCurrent()
	return w.unauthorized.Directory().DeleteAll()
}

var _ ports.Writer = (*ConsentAwareWriter)(nil)
