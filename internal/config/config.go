// Package config loads and validates the midisock configuration.
package config

import (
	"fmt"
	"os"
	"regexp"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Matcher selects endpoints either by exact name or by regular
// expression. Exactly one of the two fields must be set.
type Matcher struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// IsExact reports whether the matcher is an exact-name matcher.
func (m Matcher) IsExact() bool {
	return m.Name != ""
}

// Validate checks the exactly-one-of invariant and, for pattern
// matchers, that the pattern compiles.
func (m Matcher) Validate(what string) error {
	switch {
	case m.Name == "" && m.Regex == "":
		return fmt.Errorf("midi.%s: one of name or regex must be set", what)
	case m.Name != "" && m.Regex != "":
		return fmt.Errorf("midi.%s: name and regex are mutually exclusive", what)
	}
	if m.Regex != "" {
		// Patterns are NFKC-normalized and case-insensitive, mirroring
		// how port names are normalized before comparison.
		if _, err := regexp.Compile("(?i)" + norm.NFKC.String(m.Regex)); err != nil {
			return fmt.Errorf("midi.%s: invalid regex: %w", what, err)
		}
	}
	return nil
}

// Selector is the destination rule: device and port matchers plus the
// MIDI channel (1..16).
type Selector struct {
	Device  Matcher `yaml:"device"`
	Port    Matcher `yaml:"port"`
	Channel int     `yaml:"channel"`
}

// Config is the parsed config.yaml.
type Config struct {
	MIDI Selector `yaml:"midi"`
}

// Default returns a config with defaults applied (channel 1). The
// matchers have no sensible default and must come from the file.
func Default() *Config {
	return &Config{MIDI: Selector{Channel: 1}}
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the selector invariants: each matcher sets exactly
// one of name/regex, and the channel lies in 1..16.
func (c *Config) Validate() error {
	if err := c.MIDI.Device.Validate("device"); err != nil {
		return err
	}
	if err := c.MIDI.Port.Validate("port"); err != nil {
		return err
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return fmt.Errorf("midi.channel: %d is outside 1..16", c.MIDI.Channel)
	}
	return nil
}
