package system

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

// ReachabilityProber dials the collector over TCP and publishes whether it
// is reachable.
type ReachabilityProber struct {
	address  string
	publish  func(domain.NetworkInfo)
	interval time.Duration
	timeout  time.Duration
	dialer   net.Dialer
	logger   ports.Logger
}

// NewReachabilityProber probes the host of serviceURL. The port defaults to
// the scheme's (443 for https, 80 otherwise).
func NewReachabilityProber(serviceURL string, publish func(domain.NetworkInfo), interval, timeout time.Duration, logger ports.Logger) (*ReachabilityProber, error) {
	address, err := probeAddress(serviceURL)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReachabilityProber{
		address:  address,
		publish:  publish,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

func probeAddress(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("%w: service URL: %v", domain.ErrInvalidConfig, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: service URL %q has no host", domain.ErrInvalidConfig, serviceURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Address returns the probed host:port.
func (p *ReachabilityProber) Address() string {
	return p.address
}

// Poll dials once and publishes the result.
func (p *ReachabilityProber) Poll(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", p.address)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Debug("collector unreachable", ports.String("address", p.address), ports.Err(err))
		p.publish(domain.NetworkInfo{Reachability: domain.ReachabilityNo})
		return
	}
	_ = conn.Close()
	p.publish(domain.NetworkInfo{Reachability: domain.ReachabilityYes})
}

// Run probes until ctx is canceled.
func (p *ReachabilityProber) Run(ctx context.Context) {
	runPoller(ctx, p.interval, p.Poll)
}
