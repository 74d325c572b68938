package config

import (
	"fmt"

	"github.com/kbukum/execkit/executor"
	"github.com/kbukum/execkit/idempotency"
	"github.com/kbukum/execkit/kvstore"
	"github.com/kbukum/execkit/wal"
)

// Config is the full configuration of an execkit service: the shared
// service fields plus every pipeline stage and the per-dependency
// resilience sections.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Redis        kvstore.RedisConfig         `yaml:"redis" mapstructure:"redis"`
	Idempotency  idempotency.Config          `yaml:"idempotency" mapstructure:"idempotency"`
	WAL          wal.Config                  `yaml:"wal" mapstructure:"wal"`
	Executor     executor.Config             `yaml:"executor" mapstructure:"executor"`
	Dependencies map[string]DependencyConfig `yaml:"dependencies" mapstructure:"dependencies"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Idempotency.ApplyDefaults()
	c.WAL.ApplyDefaults()
	c.Executor.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	for name, dep := range c.Dependencies {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("config.dependencies.%s: %w", name, err)
		}
	}
	return nil
}
