package domain

import "time"

// Batch is the in-flight unit of upload work: the framed contents of exactly
// one batch file. A Batch stays in flight from the moment the reader returns it
// until the uploader reports a terminal outcome.
type Batch struct {
	// File is the batch file name inside the storage directory.
	File string

	// Data is the file contents wrapped in the data format prefix and suffix.
	Data []byte

	// CreatedAt is the creation time encoded in the file name.
	CreatedAt time.Time
}

// Size returns the number of payload bytes in the batch.
func (b *Batch) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// DataFormat describes how records are framed when a batch is read back.
// Records are joined by Separator on disk; Prefix and Suffix wrap the whole
// file contents on read so the batch forms a valid envelope (e.g. a JSON array).
type DataFormat struct {
	Prefix    string
	Suffix    string
	Separator string
}

// JSONArrayFormat frames records as a JSON array.
func JSONArrayFormat() DataFormat {
	return DataFormat{Prefix: "[", Suffix: "]", Separator: ","}
}

// NewlineFormat frames records as newline-delimited payloads.
func NewlineFormat() DataFormat {
	return DataFormat{Separator: "\n"}
}

// Frame wraps raw file contents with the prefix and suffix.
func (f DataFormat) Frame(content []byte) []byte {
	out := make([]byte, 0, len(f.Prefix)+len(content)+len(f.Suffix))
	out = append(out, f.Prefix...)
	out = append(out, content...)
	out = append(out, f.Suffix...)
	return out
}
