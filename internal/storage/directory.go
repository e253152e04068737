package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Directory is the set of batch files of one producer stream.
type Directory struct {
	path string

	mu sync.Mutex
	// newest is the latest name issued or seen; new names never sort before it.
	newest time.Time
}

// OpenDirectory creates the directory if needed.
func OpenDirectory(path string) (*Directory, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	d := &Directory{path: path}
	files, err := d.Files()
	if err != nil {
		return nil, fmt.Errorf("scan storage directory: %w", err)
	}
	if len(files) > 0 {
		d.newest = files[len(files)-1].created
	}
	return d, nil
}

// Path returns the directory path.
func (d *Directory) Path() string { return d.path }

// Files returns the batch files ordered oldest first.
// Order comes from the names, never from filesystem iteration order.
func (d *Directory) Files() ([]*File, error) {
	ents, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		created, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		files = append(files, newFile(d.path, e.Name(), created))
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].created.Before(files[j].created)
	})
	return files, nil
}

// CreateFile creates an empty batch file named after now, or one millisecond
// past the newest name issued so far, whichever is later. Names freed by
// deletion are never reused, so creation order and name order agree. When
// the name is taken, the timestamp is bumped one millisecond at a time.
func (d *Directory) CreateFile(now time.Time) (*File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := now.Truncate(time.Millisecond)
	if !d.newest.IsZero() && !t.After(d.newest) {
		t = d.newest.Add(time.Millisecond)
	}
	for {
		name := fileName(t)
		path := filepath.Join(d.path, name)
		fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			t = t.Add(time.Millisecond)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create batch file: %w", err)
		}
		if err := fh.Close(); err != nil {
			return nil, err
		}
		d.newest = t
		return newFile(d.path, name, t), nil
	}
}

// Size returns the total size of all batch files.
func (d *Directory) Size() (uint64, error) {
	files, err := d.Files()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, f := range files {
		size, err := f.Size()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
		total += size
	}
	return total, nil
}

// DeleteAll removes every batch file.
func (d *Directory) DeleteAll() error {
	files, err := d.Files()
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if err := f.Delete(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MoveAllTo moves every batch file into dst, oldest first. A name already
// taken in dst is bumped to the next free millisecond.
// Returns the number of files moved.
func (d *Directory) MoveAllTo(dst *Directory) (int, error) {
	files, err := d.Files()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, f := range files {
		t := f.created
		for {
			target := filepath.Join(dst.path, fileName(t))
			if _, err := os.Stat(target); err == nil {
				t = t.Add(time.Millisecond)
				continue
			}
			if err := os.Rename(f.path, target); err != nil {
				return moved, fmt.Errorf("move %s: %w", f.name, err)
			}
			dst.observe(t)
			break
		}
		moved++
	}
	return moved, nil
}

func (d *Directory) observe(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.After(d.newest) {
		d.newest = t
	}
}
