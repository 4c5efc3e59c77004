package config

import (
	"fmt"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/scheduler"
)

// Config is the root streamkit configuration.
type Config struct {
	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`
	Scheduler scheduler.Config `yaml:"scheduler" mapstructure:"scheduler"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("config.scheduler: %w", err)
	}
	return nil
}
