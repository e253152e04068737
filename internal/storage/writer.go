package storage

import (
	"fmt"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// FileWriter appends records to the orchestrator's writable file.
// It is not safe for concurrent use; FeatureStorage serializes access.
type FileWriter struct {
	orchestrator *FilesOrchestrator
	separator    []byte
}

// NewFileWriter creates a writer joining records with format.Separator.
func NewFileWriter(orchestrator *FilesOrchestrator, format domain.DataFormat) *FileWriter {
	return &FileWriter{
		orchestrator: orchestrator,
		separator:    []byte(format.Separator),
	}
}

// Write appends one record.
func (w *FileWriter) Write(record []byte) error {
	if len(record) == 0 {
		return domain.ErrEmptyRecord
	}

	file, err := w.orchestrator.GetWritableFile(uint64(len(record)))
	if err != nil {
		return err
	}

	size, err := file.Size()
	if err != nil {
		return fmt.Errorf("stat batch file: %w", err)
	}

	data := record
	if size > 0 && len(w.separator) > 0 {
		data = make([]byte, 0, len(w.separator)+len(record))
		data = append(data, w.separator...)
		data = append(data, record...)
	}
	if err := file.Append(data); err != nil {
		return fmt.Errorf("append to batch file: %w", err)
	}
	w.orchestrator.DidWrite()
	return nil
}

var _ ports.Writer = (*FileWriter)(nil)
