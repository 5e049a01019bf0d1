package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthPinger is implemented by components that can probe themselves.
// HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker turns a HealthPinger into a polling HealthChecker.
type PingChecker struct {
	name    string
	pinger  HealthPinger
	timeout time.Duration
	log     zerolog.Logger
	healthy atomic.Bool
}

func NewPingChecker(name string, p HealthPinger, timeout time.Duration, log zerolog.Logger) *PingChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PingChecker{name: name, pinger: p, timeout: timeout, log: log}
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() }

func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check pings once and caches the result.
func (c *PingChecker) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.pinger.HealthPing(pctx); err != nil {
		c.log.Warn().Err(err).Str("checker", c.name).Msg("health probe failed")
		c.healthy.Store(false)
		return false
	}
	c.healthy.Store(true)
	return true
}
