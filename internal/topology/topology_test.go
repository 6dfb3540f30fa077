package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShape() Shape {
	return Shape{
		Boards:           1,
		PackagesPerBoard: 2,
		CoresPerPackage:  2,
		ThreadsPerCore:   2,
		GPUsPerBoard:     1,
		GPUChipsPerGPU:   1,
		MemoryPerBoard:   1,
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(DomainCPU, DomainBoard))
	assert.True(t, Contains(DomainCPU, DomainCore))
	assert.True(t, Contains(DomainCPU, DomainCPU))
	assert.True(t, Contains(DomainMemory, DomainBoard))
	assert.True(t, Contains(DomainGPUChip, DomainGPU))
	assert.False(t, Contains(DomainBoard, DomainCPU))
	assert.False(t, Contains(DomainGPU, DomainMemory))
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("cpu")
	require.NoError(t, err)
	assert.Equal(t, DomainCPU, d)

	_, err = ParseDomain("not_a_domain")
	assert.Error(t, err)
}

func TestStaticOracleCount(t *testing.T) {
	o := NewStaticOracle(testShape())

	cases := []struct {
		d    Domain
		want int
	}{
		{DomainBoard, 1},
		{DomainPackage, 2},
		{DomainCore, 4},
		{DomainCPU, 8},
		{DomainGPU, 1},
		{DomainGPUChip, 1},
		{DomainMemory, 1},
	}
	for _, tc := range cases {
		n, err := o.Count(tc.d)
		require.NoError(t, err)
		assert.Equal(t, tc.want, n, tc.d.String())
	}
}

func TestStaticOracleNested(t *testing.T) {
	o := NewStaticOracle(testShape())

	cpus, ok, err := o.Nested(DomainCPU, DomainPackage, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, cpus)

	cpus, ok, err = o.Nested(DomainCPU, DomainPackage, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{4, 5, 6, 7}, cpus)

	_, ok, err = o.Nested(DomainBoard, DomainCPU, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticOracleNestedOutOfRange(t *testing.T) {
	o := NewStaticOracle(testShape())
	_, _, err := o.Nested(DomainCPU, DomainPackage, 99)
	assert.Error(t, err)
}

func TestParseCPUList(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0-31", 32},
		{"0-7,16-23", 16},
		{"0", 1},
	}
	for _, tc := range cases {
		n, err := parseCPUList(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, n)
	}
}

func TestNewProcOracleFallsBackOnMissingSysfs(t *testing.T) {
	fallback := testShape()
	o := NewProcOracle(filepath.Join(t.TempDir(), "does-not-exist"), fallback)

	n, err := o.Count(DomainCPU)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestNewProcOracleUsesPresentCPUList(t *testing.T) {
	root := t.TempDir()
	cpuDir := filepath.Join(root, "devices", "system", "cpu")
	require.NoError(t, os.MkdirAll(cpuDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cpuDir, "present"), []byte("0-15\n"), 0o644))

	fallback := Shape{
		Boards: 1, PackagesPerBoard: 2, CoresPerPackage: 16, ThreadsPerCore: 2,
	}
	o := NewProcOracle(root, fallback)

	n, err := o.Count(DomainCPU)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
