package loom

import "time"

// Config holds configuration for a job manager.
type Config struct {
	// StopTimeout is the default maximum time a job's OnStop hook may run
	// when the stop was requested externally. Zero means no deadline.
	StopTimeout time.Duration

	// DefaultPermission is the rank assigned to jobs registered without an
	// explicit level.
	DefaultPermission Permission

	// EventRate is the maximum sustained event dispatches per second.
	// Zero disables dispatch throttling.
	EventRate float64

	// EventBurst is the burst size for the dispatch token bucket.
	// Defaults to 1 if EventRate is set but EventBurst is zero.
	EventBurst int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StopTimeout:       5 * time.Second,
		DefaultPermission: PermDefault,
	}
}
