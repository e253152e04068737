package log

import "github.com/bft-labs/telship/internal/ports"

// NoopLogger discards everything. It is the library default.
type NoopLogger struct{}

var _ ports.Logger = NoopLogger{}

func (NoopLogger) Debug(string, ...ports.Field) {}
func (NoopLogger) Info(string, ...ports.Field)  {}
func (NoopLogger) Warn(string, ...ports.Field)  {}
func (NoopLogger) Error(string, ...ports.Field) {}
