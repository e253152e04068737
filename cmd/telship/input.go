package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/telship/pkg/telship"
)

// maxLineSize bounds one input record.
const maxLineSize = 4 << 20

// appender is the part of *telship.Telship the input pump needs.
type appender interface {
	Append(record []byte) error
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// pump appends every non-empty line of r. Records that cannot be stored are
// logged by telship and skipped; only read errors stop the pump.
func pump(r io.Reader, dst appender, logger telship.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)

	lines, skipped := 0, 0
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines++
		// Append persists the record before returning; the buffer may be reused.
		if err := dst.Append(line); err != nil {
			skipped++
		}
	}

	logger.Info("input drained",
		telship.LogField{Key: "records", Value: lines},
		telship.LogField{Key: "skipped", Value: skipped},
	)
	return scanner.Err()
}
