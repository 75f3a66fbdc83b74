package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if CLASSTWIN_CONFIG is set
//  3. env (prefix CLASSTWIN_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("CLASSTWIN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CLASSTWIN_ADDR, CLASSTWIN_OCCUPANCY_LIMIT, ...
	// Map env keys like CLASSTWIN_MQTT_BROKER -> mqtt_broker (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CLASSTWIN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "classtwin_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.OccupancyLimit < 1 {
		return fmt.Errorf("%w: occupancy_limit must be at least 1", ErrInvalidConfig)
	}
	if cfg.MinDistanceM <= 0 {
		return fmt.Errorf("%w: min_distance_m must be positive", ErrInvalidConfig)
	}
	if cfg.LabCapacity < 1 {
		return fmt.Errorf("%w: lab_capacity must be at least 1", ErrInvalidConfig)
	}
	if cfg.MQTTBroker == "" || cfg.MQTTTopic == "" {
		return fmt.Errorf("%w: mqtt_broker and mqtt_topic must not be empty", ErrInvalidConfig)
	}
	return nil
}
