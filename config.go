package parallel

import (
	"fmt"
	"time"

	"github.com/ygrebnov/parallel/metrics"
)

// Config controls Pool construction. Build one with defaultConfig and
// Options, the same three-file split (config.go/defaults.go/options.go)
// the thread pool's original configuration used.
type Config struct {
	// Workers is the fixed number of worker goroutines. Must be > 0.
	Workers uint

	// SafetyNetInterval bounds how long an idle worker waits on the
	// condition variable before re-scanning the work set, guarding
	// against a missed wakeup. Defaults to one second.
	SafetyNetInterval time.Duration

	// Metrics receives counters for submitted/completed/failed/abandoned
	// tasks, an up-down counter of tasks in flight, and a histogram of task
	// run durations. Defaults to a no-op provider.
	Metrics metrics.Provider
}

func validateConfig(cfg *Config) error {
	if cfg.Workers == 0 {
		return fmt.Errorf("%s: Workers must be greater than zero", Namespace)
	}
	if cfg.SafetyNetInterval <= 0 {
		return fmt.Errorf("%s: SafetyNetInterval must be positive", Namespace)
	}
	return nil
}
