package parallel

import (
	"fmt"
	"time"

	"github.com/ygrebnov/parallel/metrics"
)

// defaultSafetyNetInterval is how long an idle worker waits on the pool's
// condition variable before re-scanning the work set, guarding against a
// lost wakeup.
const defaultSafetyNetInterval = time.Second

// Option configures a Pool.
type Option func(*Config)

// WithWorkers sets the fixed worker count. Must be > 0.
func WithWorkers(n uint) Option {
	return func(c *Config) { c.Workers = n }
}

// WithSafetyNetInterval overrides the idle-worker re-scan timeout.
func WithSafetyNetInterval(d time.Duration) Option {
	return func(c *Config) { c.SafetyNetInterval = d }
}

// WithMetrics attaches a metrics.Provider. Defaults to a no-op provider.
func WithMetrics(p metrics.Provider) Option {
	return func(c *Config) {
		if p != nil {
			c.Metrics = p
		}
	}
}

// NewOptions builds a Pool from functional options, applied over the
// defaults. It panics on a nil option.
func NewOptions(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			panic(fmt.Sprintf("%s: nil pool option", Namespace))
		}
		opt(&cfg)
	}
	return New(&cfg)
}
