package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// RATE GOVERNOR - rolling-window call budget
// =============================================================================

// RateGovernor throttles generation-service calls to a fixed number of
// call-units per rolling window. Admit never rejects work: when the budget is
// spent it blocks the caller until the window has fully elapsed, then resets
// the counter and admits. The pipeline is sequential, so at most one caller
// ever waits; the mutex guards against accidental concurrent use.
type RateGovernor struct {
	quota  int
	window time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	used        int
	windowStart time.Time

	// now/sleep are swapped out in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateGovernor creates a governor admitting quota call-units per window.
func NewRateGovernor(quota int, window time.Duration, logger *zap.Logger) *RateGovernor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateGovernor{
		quota:  quota,
		window: window,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Admit charges cost call-units against the current window, blocking until
// the window resets when the charge would exceed the quota.
func (g *RateGovernor) Admit(cost int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nowTime := g.now()
	if g.windowStart.IsZero() {
		g.windowStart = nowTime
	}

	if g.used+cost > g.quota {
		elapsed := nowTime.Sub(g.windowStart)
		if elapsed < g.window {
			wait := g.window - elapsed
			g.logger.Info("rate quota exhausted, waiting for window reset",
				zap.Duration("wait", wait),
				zap.Int("used", g.used),
				zap.Int("quota", g.quota))
			g.sleep(wait)
		}
		g.used = 0
		g.windowStart = g.now()
	}

	g.used += cost
}
