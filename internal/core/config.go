package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CommandConfig represents a generic post-processing command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// ManifestEntry is one asset in the cache manifest. Entries without a
// URL resolve to embedded app-shell content; entries with one are
// fetched over HTTP at install time.
type ManifestEntry struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url,omitempty"`
}

type AssetCache struct {
	Enabled   bool            `yaml:"enabled"`
	Address   string          `yaml:"address"`
	CacheName string          `yaml:"cacheName"`
	Manifest  []ManifestEntry `yaml:"manifest"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port"`
	Model          string          `yaml:"model"`
	Styles         []string        `yaml:"styles"`
	ThumbnailWidth int             `yaml:"thumbnailWidth"`
	Database       Database        `yaml:"database"`
	AssetCache     AssetCache      `yaml:"assetCache"`
	PostProcessors []CommandConfig `yaml:"postProcessors"`
}

const (
	// DefaultModel is the image-capable generation model used when the
	// config does not name one.
	DefaultModel = "gemini-2.5-flash-image"

	defaultThumbnailWidth = 320
)

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateStyles(config.Styles); err != nil {
		return nil, fmt.Errorf("invalid style configuration: %w", err)
	}
	if err := validateCommands(config.PostProcessors); err != nil {
		return nil, fmt.Errorf("invalid post-processor configuration: %w", err)
	}
	if config.AssetCache.Enabled {
		if err := validateAssetCache(config.AssetCache); err != nil {
			return nil, fmt.Errorf("invalid asset cache configuration: %w", err)
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ThumbnailWidth <= 0 {
		config.ThumbnailWidth = defaultThumbnailWidth
	}

	return &config, nil
}

// validateStyles ensures the style catalog is non-empty with unique labels
func validateStyles(styles []string) error {
	if len(styles) == 0 {
		return fmt.Errorf("at least one style must be configured")
	}
	seen := make(map[string]bool)
	for i, style := range styles {
		if style == "" {
			return fmt.Errorf("style at index %d is empty", i)
		}
		if seen[style] {
			return fmt.Errorf("duplicate style: %s", style)
		}
		seen[style] = true
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}

func validateAssetCache(cache AssetCache) error {
	if cache.Address == "" {
		return fmt.Errorf("asset cache address must be set when enabled")
	}
	if cache.CacheName == "" {
		return fmt.Errorf("asset cache name must be set when enabled")
	}
	if len(cache.Manifest) == 0 {
		return fmt.Errorf("asset cache manifest must not be empty when enabled")
	}
	seen := make(map[string]bool)
	for i, entry := range cache.Manifest {
		if entry.Path == "" || entry.Path[0] != '/' {
			return fmt.Errorf("manifest entry at index %d must have a rooted path", i)
		}
		if seen[entry.Path] {
			return fmt.Errorf("duplicate manifest path: %s", entry.Path)
		}
		seen[entry.Path] = true
	}
	return nil
}
