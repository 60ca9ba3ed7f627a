package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "obj", cfg.Export.Format)
	assert.Equal(t, "Scanning App", cfg.Export.Generator)
	assert.Equal(t, "scan", cfg.Export.FilePrefix)
	assert.NotEmpty(t, cfg.Export.Root)
	assert.Equal(t, filepath.Join(cfg.Export.Root, "catalog.yaml"), cfg.Catalog.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
export:
  root: /data/scans
  format: glb
  generator: "Bench Scanner"
logging:
  level: debug
  log_file: scanobj.log
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg, err := Load(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "/data/scans", cfg.Export.Root)
	assert.Equal(t, "glb", cfg.Export.Format)
	assert.Equal(t, "Bench Scanner", cfg.Export.Generator)
	assert.Equal(t, "scan", cfg.Export.FilePrefix, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "scanobj.log", cfg.Logging.LogFile)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  format: glb\n"), 0644))

	cfg, err := Load(path, Overrides{Format: "obj", Root: "/tmp/x", Catalog: "/tmp/c.yaml", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "obj", cfg.Export.Format)
	assert.Equal(t, "/tmp/x", cfg.Export.Root)
	assert.Equal(t, "/tmp/c.yaml", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("export:\n  format: [obj\n"), 0644))
	_, err := Load(bad, Overrides{})
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"), Overrides{})
	assert.Error(t, err)

	_, err = Load("", Overrides{Format: "stl"})
	assert.Error(t, err)
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Export.Format = "glb"
	require.NoError(t, cfg.SaveTo(path))

	back, err := Load(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestConfigDir(t *testing.T) {
	assert.NotEmpty(t, ConfigDir())
	assert.NotEmpty(t, DataDir())
}
