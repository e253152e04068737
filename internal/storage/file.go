package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// File is one batch file in a Directory.
type File struct {
	name    string
	path    string
	created time.Time
}

func newFile(dir, name string, created time.Time) *File {
	return &File{name: name, path: filepath.Join(dir, name), created: created}
}

// fileName encodes a creation time as the file name.
func fileName(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// parseFileName decodes a creation time from a file name.
// Names that are not decimal millisecond timestamps are not batch files.
func parseFileName(name string) (time.Time, bool) {
	ms, err := strconv.ParseInt(name, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Name returns the file name.
func (f *File) Name() string { return f.name }

// Path returns the full path to the file.
func (f *File) Path() string { return f.path }

// CreatedAt returns the creation time encoded in the name.
func (f *File) CreatedAt() time.Time { return f.created }

// Size returns the current file size in bytes.
func (f *File) Size() (uint64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// Append writes data at the end of the file in a single write call.
func (f *File) Append(data []byte) error {
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// Read returns the whole file contents.
func (f *File) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Delete removes the file. A file that is already gone is not an error.
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
