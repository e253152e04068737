package storage

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// FilesOrchestrator decides which file to write to and which file to read
// next. It is not safe for concurrent use; FeatureStorage serializes access.
type FilesOrchestrator struct {
	dir           *Directory
	preset        domain.StoragePreset
	separatorSize uint64
	clock         ports.DateProvider
	logger        ports.Logger

	// current is the file open for writing, nil after rotation is forced.
	current        *File
	currentObjects int

	// ignoreMinReadAge lifts MinFileAgeForRead until a scan finds nothing.
	ignoreMinReadAge bool
}

// NewFilesOrchestrator creates an orchestrator for dir.
func NewFilesOrchestrator(dir *Directory, preset domain.StoragePreset, format domain.DataFormat, clock ports.DateProvider, logger ports.Logger) *FilesOrchestrator {
	return &FilesOrchestrator{
		dir:           dir,
		preset:        preset,
		separatorSize: uint64(len(format.Separator)),
		clock:         clock,
		logger:        logger,
	}
}

// Directory returns the orchestrated directory.
func (o *FilesOrchestrator) Directory() *Directory { return o.dir }

// CheckCapacity rejects records that no file or directory could ever hold.
func (o *FilesOrchestrator) CheckCapacity(recordSize uint64) error {
	switch {
	case recordSize > o.preset.MaxObjectSize:
		return fmt.Errorf("%w: %d bytes exceeds max object size %d", domain.ErrRecordTooLarge, recordSize, o.preset.MaxObjectSize)
	case recordSize > o.preset.MaxFileSize:
		return fmt.Errorf("%w: %d bytes exceeds max file size %d", domain.ErrRecordTooLarge, recordSize, o.preset.MaxFileSize)
	case recordSize > o.preset.MaxDirectorySize:
		return fmt.Errorf("%w: %d bytes exceeds max directory size %d", domain.ErrDirectoryTooSmall, recordSize, o.preset.MaxDirectorySize)
	}
	return nil
}

// GetWritableFile returns the file the next record of recordSize bytes goes
// to, rotating and evicting as needed. After it returns, appending the
// record (plus a separator when the file is not empty) keeps the file and the
// directory within their caps.
func (o *FilesOrchestrator) GetWritableFile(recordSize uint64) (*File, error) {
	if err := o.CheckCapacity(recordSize); err != nil {
		return nil, err
	}

	target, writeSize, err := o.reusableFile(recordSize)
	if err != nil {
		return nil, err
	}

	for {
		if target == nil {
			writeSize = recordSize
		}
		fits, err := o.evictFor(writeSize, target)
		if err != nil {
			return nil, err
		}
		if fits {
			break
		}
		if target == nil {
			// Unreachable while CheckCapacity holds: an empty directory fits.
			return nil, fmt.Errorf("%w: cannot free space for %d bytes", domain.ErrDirectoryTooSmall, recordSize)
		}
		// Only the current file is left and it is too big to share the
		// directory with the record: rotate so it becomes evictable.
		o.logger.Debug("storage: rotating to make room in directory",
			ports.String("dir", o.dir.Path()),
			ports.String("file", target.Name()),
		)
		o.closeCurrent()
		target = nil
	}

	if target != nil {
		return target, nil
	}

	file, err := o.dir.CreateFile(o.clock.Now())
	if err != nil {
		return nil, err
	}
	o.current = file
	o.currentObjects = 0
	o.logger.Debug("storage: created batch file",
		ports.String("dir", o.dir.Path()),
		ports.String("file", file.Name()),
	)
	return file, nil
}

// reusableFile returns the current file and the bytes appending recordSize
// to it would take, or nil when the write must rotate.
func (o *FilesOrchestrator) reusableFile(recordSize uint64) (*File, uint64, error) {
	if o.current == nil {
		return nil, 0, nil
	}
	size, err := o.current.Size()
	if errors.Is(err, fs.ErrNotExist) {
		// Deleted underneath us (purge, eviction or upload).
		o.closeCurrent()
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	writeSize := recordSize
	if size > 0 {
		writeSize += o.separatorSize
	}

	age := o.clock.Now().Sub(o.current.CreatedAt())
	switch {
	case age >= o.preset.MaxFileAgeForWrite:
	case size+writeSize > o.preset.MaxFileSize:
	case o.currentObjects >= o.preset.MaxObjectsInFile:
	default:
		return o.current, writeSize, nil
	}
	o.closeCurrent()
	return nil, 0, nil
}

// evictFor deletes the oldest files other than keep until writeSize more
// bytes fit under MaxDirectorySize. Returns false if they do not fit even
// with keep as the only file left.
func (o *FilesOrchestrator) evictFor(writeSize uint64, keep *File) (bool, error) {
	files, err := o.dir.Files()
	if err != nil {
		return false, err
	}

	sizes := make([]uint64, len(files))
	var total uint64
	for i, f := range files {
		size, err := f.Size()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		sizes[i] = size
		total += size
	}

	for i, f := range files {
		if total+writeSize <= o.preset.MaxDirectorySize {
			return true, nil
		}
		if keep != nil && f.Name() == keep.Name() {
			continue
		}
		if err := o.delete(f); err != nil {
			return false, err
		}
		total -= sizes[i]
		o.logger.Debug("storage: evicted batch file to respect directory size",
			ports.String("dir", o.dir.Path()),
			ports.String("file", f.Name()),
			ports.Uint64("bytes", sizes[i]),
		)
	}
	return total+writeSize <= o.preset.MaxDirectorySize, nil
}

// EnforceDirectoryLimit evicts oldest files, never the current one, until
// the directory is back under MaxDirectorySize.
func (o *FilesOrchestrator) EnforceDirectoryLimit() error {
	_, err := o.evictFor(0, o.current)
	return err
}

// DidWrite records one object appended to the current file.
func (o *FilesOrchestrator) DidWrite() {
	o.currentObjects++
}

// GetReadableFile returns the oldest file eligible for reading, or nil.
// The file open for writing is never returned; a current file that is full
// or past MaxFileAgeForWrite is closed first. Files older than
// MaxFileAgeForRead are deleted as obsolete.
func (o *FilesOrchestrator) GetReadableFile() (*File, error) {
	files, err := o.dir.Files()
	if err != nil {
		return nil, err
	}
	now := o.clock.Now()

	for _, f := range files {
		age := now.Sub(f.CreatedAt())
		if o.current != nil && f.Name() == o.current.Name() {
			if age < o.preset.MaxFileAgeForWrite && o.currentObjects < o.preset.MaxObjectsInFile {
				continue
			}
			// It can no longer take writes; retire it so it becomes readable.
			o.closeCurrent()
		}
		if age > o.preset.MaxFileAgeForRead {
			if err := o.delete(f); err != nil {
				return nil, err
			}
			o.logger.Debug("storage: deleted obsolete batch file",
				ports.String("dir", o.dir.Path()),
				ports.String("file", f.Name()),
				ports.Duration("age", age),
			)
			continue
		}
		if o.ignoreMinReadAge || age >= o.preset.MinFileAgeForRead {
			return f, nil
		}
	}

	o.ignoreMinReadAge = false
	return nil, nil
}

// MarkAllFilesAsReadable closes the current file and lifts the minimum read
// age until a scan finds no eligible file.
func (o *FilesOrchestrator) MarkAllFilesAsReadable() {
	o.closeCurrent()
	o.ignoreMinReadAge = true
}

// RestoreMinReadAge reinstates MinFileAgeForRead before the drain pass ends.
func (o *FilesOrchestrator) RestoreMinReadAge() {
	o.ignoreMinReadAge = false
}

// CloseCurrent forces the next write to rotate.
func (o *FilesOrchestrator) CloseCurrent() {
	o.closeCurrent()
}

// Delete removes a file by name.
func (o *FilesOrchestrator) Delete(name string) error {
	created, ok := parseFileName(name)
	if !ok {
		return fmt.Errorf("not a batch file: %q", name)
	}
	return o.delete(newFile(o.dir.Path(), name, created))
}

func (o *FilesOrchestrator) delete(f *File) error {
	if o.current != nil && f.Name() == o.current.Name() {
		o.closeCurrent()
	}
	return f.Delete()
}

func (o *FilesOrchestrator) closeCurrent() {
	o.current = nil
	o.currentObjects = 0
}
