package utils

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/naosoccer/stack/logging"
)

// ThrottledLogger logs a warning at most once per interval and reports how many occurrences were
// suppressed in between. Cyclers use it for budget overruns which can happen every cycle.
type ThrottledLogger struct {
	logger  logging.Logger
	clk     clock.Clock
	limiter *rate.Limiter

	mu         sync.Mutex
	suppressed int
}

// NewThrottledLogger returns a ThrottledLogger. A nil clock uses the wall clock.
func NewThrottledLogger(logger logging.Logger, clk clock.Clock, interval time.Duration) *ThrottledLogger {
	if clk == nil {
		clk = clock.New()
	}
	return &ThrottledLogger{
		logger:  logger,
		clk:     clk,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Warnw logs msg with the given fields unless a message was logged within the interval. It
// returns whether the message was written.
func (tl *ThrottledLogger) Warnw(msg string, keysAndValues ...interface{}) bool {
	tl.mu.Lock()
	if !tl.limiter.AllowN(tl.clk.Now(), 1) {
		tl.suppressed++
		tl.mu.Unlock()
		return false
	}
	suppressed := tl.suppressed
	tl.suppressed = 0
	tl.mu.Unlock()

	if suppressed > 0 {
		keysAndValues = append(keysAndValues, "suppressed", suppressed)
	}
	tl.logger.Warnw(msg, keysAndValues...)
	return true
}
