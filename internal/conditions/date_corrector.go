package conditions

import (
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// StaticDateCorrector returns a fixed offset.
type StaticDateCorrector struct {
	Offset time.Duration
}

// CurrentCorrection returns the fixed offset.
func (c StaticDateCorrector) CurrentCorrection() domain.DateCorrection {
	return domain.DateCorrection{ServerTimeOffset: c.Offset}
}

// ServerDateCorrector learns the server time offset from the Date header of
// collector responses. The header has one-second resolution, so offsets below
// a second are reported as zero.
type ServerDateCorrector struct {
	mu     sync.RWMutex
	offset time.Duration
	clock  ports.DateProvider
}

// NewServerDateCorrector creates a corrector using the given local clock.
func NewServerDateCorrector(clock ports.DateProvider) *ServerDateCorrector {
	if clock == nil {
		clock = ports.SystemDateProvider{}
	}
	return &ServerDateCorrector{clock: clock}
}

// CurrentCorrection returns the last observed offset.
func (c *ServerDateCorrector) CurrentCorrection() domain.DateCorrection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.DateCorrection{ServerTimeOffset: c.offset}
}

// ObserveResponse records the offset from a response's Date header.
// Responses without a parseable Date header are ignored.
func (c *ServerDateCorrector) ObserveResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	raw := resp.Header.Get("Date")
	if raw == "" {
		return
	}
	serverTime, err := http.ParseTime(raw)
	if err != nil {
		return
	}
	offset := serverTime.Sub(c.clock.Now()).Truncate(time.Second)

	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}
