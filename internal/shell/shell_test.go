package shell

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/provider/providertest"
	"github.com/geopm-project/platformio-go/internal/topology"
)

func newShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	oracle := topology.NewStaticOracle(topology.Shape{
		Boards: 1, PackagesPerBoard: 2, CoresPerPackage: 2, ThreadsPerCore: 1,
		GPUsPerBoard: 1, GPUChipsPerGPU: 1, MemoryPerBoard: 1,
	})
	orch := orchestrator.New(oracle)
	fx := providertest.NewConstant("P1", "TEMP", topology.DomainBoard, 42, "POWER_CAP")
	require.NoError(t, orch.RegisterProvider(fx))

	var buf bytes.Buffer
	sh := New(orch)
	sh.out = &buf
	return sh, &buf
}

func TestExecuteSignals(t *testing.T) {
	sh, buf := newShell(t)
	require.NoError(t, sh.execute("signals"))
	assert.Contains(t, buf.String(), "TEMP")
}

func TestExecuteDomain(t *testing.T) {
	sh, buf := newShell(t)
	require.NoError(t, sh.execute("domain TEMP"))
	assert.Contains(t, buf.String(), "board")
}

func TestExecuteRead(t *testing.T) {
	sh, buf := newShell(t)
	require.NoError(t, sh.execute("read TEMP board 0"))
	assert.Contains(t, buf.String(), "42")
}

func TestExecutePushBatchSample(t *testing.T) {
	sh, buf := newShell(t)
	require.NoError(t, sh.execute("push signal TEMP board 0"))
	assert.Contains(t, buf.String(), "handle 0")

	require.NoError(t, sh.execute("batch read"))
	buf.Reset()
	require.NoError(t, sh.execute("sample 0"))
	assert.Contains(t, buf.String(), "42")
}

func TestExecuteWriteAndSaveRestore(t *testing.T) {
	sh, _ := newShell(t)
	require.NoError(t, sh.execute("save"))
	require.NoError(t, sh.execute("write POWER_CAP board 0 150"))
	require.NoError(t, sh.execute("restore"))
}

func TestExecuteSampleBeforeBatchFails(t *testing.T) {
	sh, _ := newShell(t)
	require.NoError(t, sh.execute("push signal TEMP board 0"))
	assert.Error(t, sh.execute("sample 0"))
}

func TestExecuteUnknownCommand(t *testing.T) {
	sh, _ := newShell(t)
	assert.Error(t, sh.execute("frobnicate"))
}

func TestExecuteExit(t *testing.T) {
	sh, _ := newShell(t)
	assert.Equal(t, errExit, sh.execute("exit"))
}

func TestExecuteBadDomain(t *testing.T) {
	sh, _ := newShell(t)
	assert.Error(t, sh.execute("read TEMP rack 0"))
}
