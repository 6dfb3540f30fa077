package cpuinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

func writeFixture(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fixtureTree(t *testing.T) (procPath, sysfsRoot string) {
	dir := t.TempDir()
	procPath = filepath.Join(dir, "cpuinfo")
	writeFixture(t, procPath, `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) Gold 6138 CPU @ 2.00GHz
`)
	sysfsRoot = filepath.Join(dir, "sys")
	writeFixture(t, filepath.Join(sysfsRoot, "devices/system/cpu/cpu0/cpufreq/cpuinfo_min_freq"), "1000000\n")
	writeFixture(t, filepath.Join(sysfsRoot, "devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"), "3700000\n")
	return procPath, sysfsRoot
}

func TestNewProbesFixtureTree(t *testing.T) {
	procPath, sysfsRoot := fixtureTree(t)
	p := New(procPath, sysfsRoot)

	sticker, err := p.ReadSignal(SignalFreqSticker, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0e9, sticker)

	minFreq, err := p.ReadSignal(SignalFreqMin, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0e9, minFreq)

	maxFreq, err := p.ReadSignal(SignalFreqMax, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.7e9, maxFreq)

	step, err := p.ReadSignal(SignalFreqStep, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 100e6, step)
}

func TestSignalsAreBoardScopedConstants(t *testing.T) {
	procPath, sysfsRoot := fixtureTree(t)
	p := New(procPath, sysfsRoot)

	for _, name := range p.SignalNames() {
		d, ok := p.SignalDomain(name)
		require.True(t, ok)
		assert.Equal(t, topology.DomainBoard, d)
		meta, ok := p.SignalMeta(name)
		require.True(t, ok)
		assert.Equal(t, provider.BehaviorConstant, meta.Behavior)
	}
	assert.Empty(t, p.ControlNames())
}

func TestNewFallsBackWhenProbeFails(t *testing.T) {
	dir := t.TempDir()
	p := New(filepath.Join(dir, "missing"), filepath.Join(dir, "nosys"))

	sticker, err := p.ReadSignal(SignalFreqSticker, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0e9, sticker)

	maxFreq, err := p.ReadSignal(SignalFreqMax, topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, sticker, maxFreq)
}

func TestParseFreqToken(t *testing.T) {
	cases := []struct {
		token string
		want  float64
	}{
		{"2.00GHz", 2.0e9},
		{"3.50GHz", 3.5e9},
		{"2600MHz", 2.6e9},
	}
	for _, tc := range cases {
		v, err := parseFreqToken(tc.token)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v, tc.token)
	}

	_, err := parseFreqToken("fast")
	assert.Error(t, err)
}
