package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verbosity: debug\nmcp:\n  transport: streamable-http\n  port: 9100\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Verbosity)
	assert.Equal(t, TransportStreamableHTTP, cfg.MCP.Transport)
	assert.Equal(t, 9100, cfg.MCP.Port)
	assert.Equal(t, "localhost", cfg.MCP.Host) // unset field keeps the default
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	cfg := Default()
	cfg.MCP.Transport = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsStreamableHTTPWithoutPort(t *testing.T) {
	cfg := Default()
	cfg.MCP.Transport = TransportStreamableHTTP
	cfg.MCP.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicateProviderOrder(t *testing.T) {
	cfg := Default()
	cfg.ProviderOrder = []string{"msr", "sysfs", "msr"}
	assert.Error(t, cfg.Validate())
}

func TestOrderProviders(t *testing.T) {
	got := OrderProviders([]string{"gpu", "msr"}, []string{"sysfs", "msr", "gpu", "constconfig"})
	assert.Equal(t, []string{"gpu", "msr", "sysfs", "constconfig"}, got)
}

func TestParseVerbosity(t *testing.T) {
	cfg := Default()
	cfg.Verbosity = "debug"
	assert.Equal(t, "DEBUG", cfg.ParseVerbosity().String())
}
