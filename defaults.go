package parallel

import "github.com/ygrebnov/parallel/metrics"

// defaultConfig centralizes default values for Config.
func defaultConfig() Config {
	return Config{
		Workers:           1,
		SafetyNetInterval: defaultSafetyNetInterval,
		Metrics:           metrics.NewNoopProvider(),
	}
}
