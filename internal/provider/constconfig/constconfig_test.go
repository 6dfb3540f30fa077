package constconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/topology"
)

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRendersTemplatedValue(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "tdp.yaml", `
TDP_WATTS:
  description: "package TDP ceiling"
  domain: package
  aggregation: expect_same
  value: "{{ 205 }}"
`)

	p, err := Load(path, "node01")
	require.NoError(t, err)

	assert.Equal(t, "CONST_CONFIG:tdp", p.Name())
	d, ok := p.SignalDomain("TDP_WATTS")
	require.True(t, ok)
	assert.Equal(t, topology.DomainPackage, d)

	v, err := p.ReadSignal("TDP_WATTS", topology.DomainPackage, 0)
	require.NoError(t, err)
	assert.Equal(t, 205.0, v)
}

func TestLoadRendersHostnameTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "rack.yaml", `
RACK_ID:
  description: "rack identifier, numeric for this fixture"
  domain: board
  aggregation: expect_same
  value: "{{ len .Hostname }}"
`)

	p, err := Load(path, "node01")
	require.NoError(t, err)

	v, err := p.ReadSignal("RACK_ID", topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v) // len("node01")
}

func TestLoadRejectsUnknownDomain(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "bad.yaml", `
X:
  domain: not_a_domain
  value: "1"
`)
	_, err := Load(path, "node01")
	assert.Error(t, err)
}

func TestLoadRejectsNonNumericValue(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "bad.yaml", `
X:
  domain: board
  value: "not-a-number"
`)
	_, err := Load(path, "node01")
	assert.Error(t, err)
}

func TestWriteControlIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "tdp.yaml", `
TDP_WATTS:
  domain: package
  value: "205"
`)
	p, err := Load(path, "node01")
	require.NoError(t, err)
	assert.Empty(t, p.ControlNames())
	assert.Error(t, p.WriteControl("TDP_WATTS", topology.DomainPackage, 0, 1))
}
