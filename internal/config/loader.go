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
//  1. defaults (New())
//  2. file (YAML) if LEAP_CONFIG is set
//  3. env (prefix LEAP_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("LEAP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: LEAP_ADDR, LEAP_SAMPLE_RATE, ...
	// Map env keys like LEAP_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("LEAP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "leap_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the engine cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidConfig)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min_confidence must be in [0,1]", ErrInvalidConfig)
	case c.StrictConfidence < 0 || c.StrictConfidence > 1:
		return fmt.Errorf("%w: strict_confidence must be in [0,1]", ErrInvalidConfig)
	case c.BodyRatio <= 0 || c.BodyRatio > 1:
		return fmt.Errorf("%w: body_ratio must be in (0,1]", ErrInvalidConfig)
	case c.FrameFillRatio <= 0 || c.FrameFillRatio > 1:
		return fmt.Errorf("%w: frame_fill_ratio must be in (0,1]", ErrInvalidConfig)
	case c.MinObservations <= 0:
		return fmt.Errorf("%w: min_observations must be positive", ErrInvalidConfig)
	case c.MinJumpCm < 0 || c.MaxPlausibleCm <= c.MinJumpCm:
		return fmt.Errorf("%w: max_plausible_cm must exceed min_jump_cm", ErrInvalidConfig)
	}
	return nil
}
