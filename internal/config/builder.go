package config

import (
	"fmt"

	"dario.cat/mergo"
)

// configBuilder accumulates configuration sources in priority order and
// merges them on build. Sources appended earlier take precedence.
type configBuilder struct {
	configs []*Config
	errs    []error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{}
}

// withEnv appends the configuration read from environment variables.
func (b *configBuilder) withEnv() *configBuilder {
	cfg, err := fromEnv()
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("config from env: %w", err))
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

// withFlags appends the configuration read from command-line flags.
func (b *configBuilder) withFlags() *configBuilder {
	b.configs = append(b.configs, fromFlags())
	return b
}

// withJSON appends the configuration read from the JSON file, if any of
// the higher-priority sources named one.
func (b *configBuilder) withJSON() *configBuilder {
	path := b.jsonFilePath()
	if path == "" {
		return b
	}

	cfg, err := fromJSONFile(path)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("config from json file %q: %w", path, err))
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

// withDefaults appends the built-in defaults as the lowest-priority source.
func (b *configBuilder) withDefaults() *configBuilder {
	b.configs = append(b.configs, defaults())
	return b
}

// jsonFilePath returns the config file path from the highest-priority
// source that set one.
func (b *configBuilder) jsonFilePath() string {
	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			return cfg.JSONFilePath
		}
	}
	return ""
}

// build merges the accumulated sources and validates the result.
func (b *configBuilder) build() (*Config, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build config: %w", b.errs[0])
	}

	merged := &Config{}
	for _, cfg := range b.configs {
		if err := mergo.Merge(merged, cfg); err != nil {
			return nil, fmt.Errorf("merge configs: %w", err)
		}
	}

	if err := merged.validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
