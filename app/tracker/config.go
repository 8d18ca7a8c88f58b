package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDisplayTimezone = "America/Los_Angeles"
	defaultZoneLabel       = "PST"
	defaultTimeout         = 30
)

// LoadConfig reads a tracker definition. The tracker name defaults to the
// file name without its extension.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var trackerConfig Config
	if err := yaml.Unmarshal(data, &trackerConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if trackerConfig.Name == "" {
		base := filepath.Base(configFile)
		trackerConfig.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if trackerConfig.Display.Timezone == "" {
		trackerConfig.Display.Timezone = defaultDisplayTimezone
	}
	if trackerConfig.Display.ZoneLabel == "" {
		trackerConfig.Display.ZoneLabel = defaultZoneLabel
	}
	if trackerConfig.Timeout == 0 {
		trackerConfig.Timeout = defaultTimeout
	}

	if err := validateConfig(&trackerConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return &trackerConfig, nil
}

func validateConfig(trackerConfig *Config) error {
	requiredFields := []struct {
		name  string
		value string
	}{
		{"route URL", trackerConfig.RouteURL},
		{"blog URL", trackerConfig.BlogURL},
	}

	for _, field := range requiredFields {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}

	if trackerConfig.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if trackerConfig.PostLink != "" && strings.Count(trackerConfig.PostLink, "%s") != 1 {
		return fmt.Errorf("post link must contain exactly one %%s placeholder")
	}

	if _, err := time.LoadLocation(trackerConfig.Display.Timezone); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", trackerConfig.Display.Timezone, err)
	}

	return nil
}

func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// DisplayLocation returns the zone used when showing timestamps to readers.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PostURL returns the public link for a post, or "" when no template is set.
func (c *Config) PostURL(postID string) string {
	if c.PostLink == "" {
		return ""
	}
	return fmt.Sprintf(c.PostLink, postID)
}
