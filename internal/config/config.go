// Package config loads scanobj settings from YAML and command-line overrides.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	scanobj "github.com/flywave/go-scanobj"
)

// Config holds all tool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig controls where and how models are written.
type ExportConfig struct {
	Root       string `yaml:"root"`        // parent of the Scans folder
	Format     string `yaml:"format"`      // obj or glb
	Generator  string `yaml:"generator"`   // written into file headers
	FilePrefix string `yaml:"file_prefix"` // scan -> scan_<unix>.obj
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Overrides carries command-line values; empty fields leave the config alone.
type Overrides struct {
	Root     string
	Format   string
	LogLevel string
	LogFile  string
	Catalog  string
	Debug    bool
}

// Default returns a Config rooted in the user's data directory.
func Default() *Config {
	root := DataDir()
	return &Config{
		Export: ExportConfig{
			Root:       root,
			Format:     scanobj.FORMAT_OBJ,
			Generator:  scanobj.DefaultGenerator,
			FilePrefix: "scan",
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(root, "catalog.yaml"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load applies, in order, defaults, the YAML file at path (or the first
// config found in the standard locations when path is empty) and o.
func Load(path string, o Overrides) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "loading config from %s", path)
		}
	}
	cfg.Apply(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply copies the non-empty overrides into c.
func (c *Config) Apply(o Overrides) {
	if o.Root != "" {
		c.Export.Root = o.Root
	}
	if o.Format != "" {
		c.Export.Format = o.Format
	}
	if o.Catalog != "" {
		c.Catalog.Path = o.Catalog
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Debug {
		c.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		c.Logging.LogFile = o.LogFile
	}
}

func (c *Config) Validate() error {
	switch c.Export.Format {
	case scanobj.FORMAT_OBJ, scanobj.FORMAT_GLB:
	default:
		return errors.Errorf("unknown export format %q", c.Export.Format)
	}
	if c.Export.FilePrefix == "" {
		return errors.New("export.file_prefix must not be empty")
	}
	return nil
}

// SaveTo writes the config to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./scanobj.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scanobj")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "scanobj")
}

// DataDir returns where scans are kept by default.
func DataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "scanobj")
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "scanobj")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "scanobj")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "scanobj")
	}
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
