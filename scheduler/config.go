package scheduler

import (
	"runtime"
	"time"

	"github.com/kbukum/streamkit/validation"
)

// Config contains the settings behind the package default schedulers.
type Config struct {
	// Parallelism is the lane count of the default parallel scheduler.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism" validate:"min=0"`
	// ElasticTTL is how long idle elastic lanes are kept for reuse.
	ElasticTTL time.Duration `yaml:"elastic_ttl" mapstructure:"elastic_ttl" validate:"min=0"`
	// BoundedMaxLanes caps the default bounded-elastic scheduler.
	BoundedMaxLanes int `yaml:"bounded_max_lanes" mapstructure:"bounded_max_lanes" validate:"min=0"`
	// BoundedMaxQueued caps deferred tasks across all deferred Workers of
	// the default bounded-elastic scheduler.
	BoundedMaxQueued int `yaml:"bounded_max_queued" mapstructure:"bounded_max_queued" validate:"min=0"`
}

// ApplyDefaults applies default values to scheduler configuration.
func (c *Config) ApplyDefaults() {
	if c.Parallelism == 0 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.ElasticTTL == 0 {
		c.ElasticTTL = DefaultElasticTTL
	}
	if c.BoundedMaxLanes == 0 {
		c.BoundedMaxLanes = 10 * runtime.NumCPU()
	}
	if c.BoundedMaxQueued == 0 {
		c.BoundedMaxQueued = DefaultBoundedMaxQueued
	}
}

// Validate validates scheduler configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
