package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component-level checkers (store, image dir).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	// Check runs one check now and caches its result.
	Check(ctx context.Context) bool
	Start(ctx context.Context, interval time.Duration)
}

// ServiceHealthChecker folds its component checkers into one service flag.
type ServiceHealthChecker struct {
	healthy atomic.Bool
	deps    []HealthChecker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	return &ServiceHealthChecker{deps: deps, log: log}
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() }

// Components reports the cached state of every dependency by name.
func (h *ServiceHealthChecker) Components() map[string]bool {
	out := make(map[string]bool, len(h.deps))
	for _, c := range h.deps {
		out[c.Name()] = c.IsHealthy()
	}
	return out
}

// Start checks every dependency once, so the service flag is current before
// the first tick, then keeps the checkers polling and re-evaluates the flag on
// each tick until ctx is done.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	for _, c := range h.deps {
		c.Check(ctx)
	}
	for _, c := range h.deps {
		go c.Start(ctx, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.eval()
		}
	}
}

func (h *ServiceHealthChecker) eval() {
	all := true
	var down []string
	for _, c := range h.deps {
		if !c.IsHealthy() {
			all = false
			down = append(down, c.Name())
		}
	}
	prev := h.healthy.Swap(all)
	if prev == all {
		return
	}
	if all {
		h.log.Info().Msg("service health: UP")
	} else {
		h.log.Error().Strs("down", down).Msg("service health: DOWN")
	}
}
