// Package storage implements the on-device batch store.
//
// Records are appended to the current writable file of a directory. The
// [FilesOrchestrator] rotates files by age, size and object count and evicts
// the oldest files when the directory cap would be exceeded. The [FileReader]
// hands the oldest eligible file to the upload path and deletes it once the
// upload reaches a terminal outcome.
//
// Each feature stream owns two directories: the authorized one ("v1"), which
// is uploaded, and a quarantined one ("intermediate-v1") that buffers records
// while tracking consent is pending. [ConsentAwareWriter] routes writes and
// migrates data on consent transitions.
//
// # On-disk format
//
// A batch file is a flat sequence of records joined by the configured
// separator. Prefix and suffix are not stored; the reader adds them. File
// names are the creation time in unix milliseconds, which gives the ordered
// index used for rotation, eviction and reading.
package storage
