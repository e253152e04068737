package storage

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// FileReader turns batch files into batches.
// It is not safe for concurrent use; FeatureStorage serializes access.
type FileReader struct {
	orchestrator *FilesOrchestrator
	format       domain.DataFormat
	logger       ports.Logger
}

// NewFileReader creates a reader framing batches with format.
func NewFileReader(orchestrator *FilesOrchestrator, format domain.DataFormat, logger ports.Logger) *FileReader {
	return &FileReader{
		orchestrator: orchestrator,
		format:       format,
		logger:       logger,
	}
}

// ReadNextBatch returns the oldest eligible batch, or nil when none qualifies.
// Empty files left behind by failed writes are removed on the way.
func (r *FileReader) ReadNextBatch() (*domain.Batch, error) {
	for {
		file, err := r.orchestrator.GetReadableFile()
		if err != nil {
			return nil, fmt.Errorf("scan batch files: %w", err)
		}
		if file == nil {
			return nil, nil
		}

		content, err := file.Read()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read batch file %s: %w", file.Name(), err)
		}
		if len(content) == 0 {
			r.logger.Debug("storage: removing empty batch file", ports.String("file", file.Name()))
			if err := r.orchestrator.Delete(file.Name()); err != nil {
				return nil, err
			}
			continue
		}

		return &domain.Batch{
			File:      file.Name(),
			Data:      r.format.Frame(content),
			CreatedAt: file.CreatedAt(),
		}, nil
	}
}

// MarkBatchAsRead deletes the batch file.
func (r *FileReader) MarkBatchAsRead(batch *domain.Batch) error {
	if batch == nil {
		return nil
	}
	return r.orchestrator.Delete(batch.File)
}

// MarkAllFilesAsReadable lifts the minimum read age for one drain pass.
func (r *FileReader) MarkAllFilesAsReadable() {
	r.orchestrator.MarkAllFilesAsReadable()
}

// RestoreMinReadAge ends the drain pass started by MarkAllFilesAsReadable.
func (r *FileReader) RestoreMinReadAge() {
	r.orchestrator.RestoreMinReadAge()
}

var _ ports.Reader = (*FileReader)(nil)
