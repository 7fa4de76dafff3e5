package core

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfigFile(t, `
port: 8080
styles:
  - watercolor
  - pop art
database:
  type: sqlite
  connectionString: ":memory:"
postProcessors:
  - name: PngConverterCommand
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if config.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Port)
	}
	if len(config.Styles) != 2 {
		t.Errorf("expected 2 styles, got %d", len(config.Styles))
	}
	if config.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, config.Model)
	}
	if config.ThumbnailWidth != defaultThumbnailWidth {
		t.Errorf("expected default thumbnail width, got %d", config.ThumbnailWidth)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadConfig_NoStyles(t *testing.T) {
	path := writeConfigFile(t, `
port: 8080
styles: []
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for empty style catalog")
	}
}

func TestLoadConfig_DuplicateStyle(t *testing.T) {
	path := writeConfigFile(t, `
port: 8080
styles:
  - watercolor
  - watercolor
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for duplicate style")
	}
}

func TestLoadConfig_DuplicateCommand(t *testing.T) {
	path := writeConfigFile(t, `
port: 8080
styles:
  - watercolor
postProcessors:
  - name: PngConverterCommand
  - name: PngConverterCommand
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for duplicate command name")
	}
}

func TestLoadConfig_AssetCacheValidation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			name: "missing address",
			config: `
port: 8080
styles: [watercolor]
assetCache:
  enabled: true
  cacheName: plus-shell-v1
  manifest:
    - path: /index.html
`,
		},
		{
			name: "empty manifest",
			config: `
port: 8080
styles: [watercolor]
assetCache:
  enabled: true
  address: localhost:6379
  cacheName: plus-shell-v1
  manifest: []
`,
		},
		{
			name: "unrooted manifest path",
			config: `
port: 8080
styles: [watercolor]
assetCache:
  enabled: true
  address: localhost:6379
  cacheName: plus-shell-v1
  manifest:
    - path: index.html
`,
		},
		{
			name: "duplicate manifest path",
			config: `
port: 8080
styles: [watercolor]
assetCache:
  enabled: true
  address: localhost:6379
  cacheName: plus-shell-v1
  manifest:
    - path: /index.html
    - path: /index.html
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.config)
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_DisabledAssetCacheSkipsValidation(t *testing.T) {
	path := writeConfigFile(t, `
port: 8080
styles: [watercolor]
assetCache:
  enabled: false
`)
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
}
