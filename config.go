package keen

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the tunable settings of a Core.
type Config struct {
	// CollectorHost is the hostname of the event collector.
	CollectorHost string

	// APIVersion is the collector API version segment used when
	// building event addresses.
	APIVersion string

	// Workers is the number of delivery workers. Zero selects the
	// hardware parallelism of the host, with a floor of one.
	Workers int

	// SendTimeout bounds a single delivery attempt. Zero disables the
	// per-attempt deadline.
	SendTimeout time.Duration

	// ShutdownTimeout bounds how long Close waits for the worker pool
	// to join before giving up.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the configuration used when no options override it.
func DefaultConfig() Config {
	return Config{
		CollectorHost:   "api.keen.io",
		APIVersion:      "3.0",
		Workers:         0,
		SendTimeout:     30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.CollectorHost == "" {
		return fmt.Errorf("keen: config: collector host must not be empty")
	}
	if c.APIVersion == "" {
		return fmt.Errorf("keen: config: api version must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("keen: config: workers must not be negative")
	}
	return nil
}

// workerCount resolves the effective pool size for the configuration.
func (c Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}
