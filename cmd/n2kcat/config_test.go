package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "n2kcat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
transport: socketcan
device: can0
baud: 38400
output_format: canboat
filter: [129025, 65280]
csv_fields: "129025:latitude,longitude"
disable_address_mapper: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "socketcan", cfg.Transport)
	assert.Equal(t, "can0", cfg.Device)
	assert.Equal(t, 38400, cfg.Baud)
	assert.Equal(t, "canboat", cfg.OutputFormat)
	assert.Equal(t, []uint32{129025, 65280}, cfg.Filter)
	assert.True(t, cfg.DisableAddressMapper)
	assert.Equal(t, "129025:latitude,longitude", cfg.CSVFields)
}

func TestLoadConfig_RejectsUnknownTransport(t *testing.T) {
	path := writeTempConfig(t, "transport: bluetooth\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownOutputFormat(t *testing.T) {
	path := writeTempConfig(t, "output_format: xml\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_FilterString(t *testing.T) {
	cfg := &Config{Filter: []uint32{129025, 65280}}
	assert.Equal(t, "129025,65280", cfg.FilterString())

	empty := &Config{}
	assert.Equal(t, "", empty.FilterString())
}
