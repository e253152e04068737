package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bft-labs/telship/internal/ports"
)

// StatusFileName is the name of the upload statistics file.
const StatusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository with a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository stores status.json in dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load reads the last saved status.
// A missing file yields an empty status and nil error.
func (r *StatusFileRepository) Load(ctx context.Context) (ports.UploadStatus, error) {
	data, err := os.ReadFile(r.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return ports.UploadStatus{}, nil
	}
	if err != nil {
		return ports.UploadStatus{}, err
	}

	var status ports.UploadStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return ports.UploadStatus{}, fmt.Errorf("parse %s: %w", r.Path(), err)
	}
	return status, nil
}

// Save writes the status to a temp file and renames it into place, so
// readers never observe a partial file.
func (r *StatusFileRepository) Save(ctx context.Context, status ports.UploadStatus) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
