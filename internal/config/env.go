package config

import (
	"github.com/caarlos0/env/v11"
)

// fromEnv reads configuration from environment variables according to the
// env tags on [Config].
func fromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
