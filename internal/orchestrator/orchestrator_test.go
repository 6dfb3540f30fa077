package orchestrator_test

import (
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/ioerr"
	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/provider/providertest"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// testShape gives one board of 2 packages with 4 cpus each.
func testShape() topology.Shape {
	return topology.Shape{
		Boards:           1,
		PackagesPerBoard: 2,
		CoresPerPackage:  2,
		ThreadsPerCore:   2,
		GPUsPerBoard:     1,
		GPUChipsPerGPU:   1,
		MemoryPerBoard:   1,
	}
}

func newFreqProvider(values map[int]float64) *provider.Base {
	return &provider.Base{
		ProviderName: "P1",
		Signals: map[string]provider.SignalDef{
			"FREQ": {Domain: topology.DomainCPU, Meta: provider.Meta{Aggregation: provider.AggAverage}},
		},
		Controls: map[string]provider.ControlDef{},
		ReadFn: func(name string, domain topology.Domain, idx int) (float64, error) {
			return values[idx], nil
		},
		WriteFn: func(name string, domain topology.Domain, idx int, value float64) error {
			return fmt.Errorf("P1: %s is read-only", name)
		},
	}
}

// TestDirectPushAndSample covers the plain path: push at the native
// domain, read the batch, sample.
func TestDirectPushAndSample(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	require.NoError(t, o.RegisterProvider(newFreqProvider(map[int]float64{2: 2.1e9})))

	handle, err := o.PushSignal("FREQ", topology.DomainCPU, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, handle)

	require.NoError(t, o.ReadBatch())
	v, err := o.Sample(handle)
	require.NoError(t, err)
	assert.Equal(t, 2.1e9, v)
}

// TestCrossDomainAggregation pushes a cpu-native signal at package scope
// and expects the average of the nested cpus.
func TestCrossDomainAggregation(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	require.NoError(t, o.RegisterProvider(newFreqProvider(map[int]float64{
		0: 1.0e9, 1: 2.0e9, 2: 3.0e9, 3: 4.0e9,
	})))

	handle, err := o.PushSignal("FREQ", topology.DomainPackage, 0)
	require.NoError(t, err)

	require.NoError(t, o.ReadBatch())
	v, err := o.Sample(handle)
	require.NoError(t, err)
	assert.Equal(t, 2.5e9, v)
}

func newPowerProvider() (*provider.Base, *map[int]float64) {
	current := map[int]float64{}
	b := &provider.Base{
		ProviderName: "P1",
		Signals:      map[string]provider.SignalDef{},
		Controls: map[string]provider.ControlDef{
			"POWER": {Domain: topology.DomainCPU, Meta: provider.Meta{Aggregation: provider.AggSum}},
		},
		ReadFn: func(name string, domain topology.Domain, idx int) (float64, error) {
			return 0, fmt.Errorf("P1: %s is not a signal", name)
		},
		WriteFn: func(name string, domain topology.Domain, idx int, value float64) error {
			current[idx] = value
			return nil
		},
	}
	return b, &current
}

// TestSumControlDisaggregation writes a sum-aggregated cpu-native control
// at package scope and expects the setting split evenly.
func TestSumControlDisaggregation(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	p, current := newPowerProvider()
	require.NoError(t, o.RegisterProvider(p))

	require.NoError(t, o.WriteControl("POWER", topology.DomainPackage, 0, 100))

	for i := 0; i < 4; i++ {
		assert.Equal(t, 25.0, (*current)[i])
	}
}

// TestFallbackOnIoError expects a read to fall through to the
// lower-priority provider when the override provider's read fails.
func TestFallbackOnIoError(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)

	base := providertest.NewConstant("P_base", "TEMP", topology.DomainBoard, 42, "TEMP_CTL")
	override := providertest.NewConstant("P_override", "TEMP", topology.DomainBoard, 99, "TEMP_CTL")
	override.FailRead("TEMP")

	require.NoError(t, o.RegisterProvider(base))
	require.NoError(t, o.RegisterProvider(override))

	v, err := o.ReadSignal("TEMP", topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

// TestFreezeOnReadBatch expects pushes after the first read_batch to be
// rejected.
func TestFreezeOnReadBatch(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	require.NoError(t, o.RegisterProvider(newFreqProvider(map[int]float64{0: 1e9})))

	_, err := o.PushSignal("FREQ", topology.DomainCPU, 0)
	require.NoError(t, err)
	require.NoError(t, o.ReadBatch())

	_, err = o.PushSignal("FREQ", topology.DomainCPU, 1)
	require.Error(t, err)
	assert.True(t, ioerr.Of(err, ioerr.KindBatchFrozen))
}

// TestSaveRestoreRoundTrip expects restore_controls to return a control
// to its saved setting.
func TestSaveRestoreRoundTrip(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	fx := providertest.NewConstant("P1", "A", topology.DomainBoard, 10, "A")
	require.NoError(t, o.RegisterProvider(fx))

	require.NoError(t, o.SaveControls())
	require.NoError(t, o.WriteControl("A", topology.DomainBoard, 0, 99))
	require.NoError(t, o.RestoreControls())

	v, err := o.ReadSignal("A", topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestSaveRestoreFromDirectoryRoundTrip(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	fx := providertest.NewConstant("P1", "A", topology.DomainBoard, 10, "A")
	require.NoError(t, o.RegisterProvider(fx))

	dir := t.TempDir()
	require.NoError(t, o.SaveControlsTo(dir))
	require.NoError(t, o.WriteControl("A", topology.DomainBoard, 0, 99))
	require.NoError(t, o.RestoreControlsFrom(dir))

	v, err := o.ReadSignal("A", topology.DomainBoard, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	_, statErr := os.Stat(dir + "/P1-save-control.json")
	require.NoError(t, statErr)
}

func TestPushSignalMemoizesFingerprint(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	require.NoError(t, o.RegisterProvider(newFreqProvider(map[int]float64{0: 1e9})))

	h1, err := o.PushSignal("FREQ", topology.DomainCPU, 0)
	require.NoError(t, err)
	h2, err := o.PushSignal("FREQ", topology.DomainCPU, 0)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestAdjustRejectsNonFinite(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	fx := providertest.NewConstant("P1", "A", topology.DomainBoard, 10, "A")
	require.NoError(t, o.RegisterProvider(fx))

	h, err := o.PushControl("A", topology.DomainBoard, 0)
	require.NoError(t, err)

	err = o.Adjust(h, math.NaN())
	require.Error(t, err)
	assert.True(t, ioerr.Of(err, ioerr.KindInvalidArgument))
}

func TestSampleBeforeReadBatchFails(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	require.NoError(t, o.RegisterProvider(newFreqProvider(map[int]float64{0: 1e9})))

	h, err := o.PushSignal("FREQ", topology.DomainCPU, 0)
	require.NoError(t, err)

	_, err = o.Sample(h)
	require.Error(t, err)
	assert.True(t, ioerr.Of(err, ioerr.KindNotReady))
}

func TestUnknownSignalFails(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	_, err := o.PushSignal("DOES_NOT_EXIST", topology.DomainCPU, 0)
	require.Error(t, err)
	assert.True(t, ioerr.Of(err, ioerr.KindUnknownName))
}

func TestRestoreWithoutSaveFails(t *testing.T) {
	oracle := topology.NewStaticOracle(testShape())
	o := orchestrator.New(oracle)
	err := o.RestoreControls()
	require.Error(t, err)
	assert.True(t, ioerr.Of(err, ioerr.KindNotSaved))
}
