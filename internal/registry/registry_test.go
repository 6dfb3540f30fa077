package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/provider/providertest"
	"github.com/geopm-project/platformio-go/internal/registry"
	"github.com/geopm-project/platformio-go/internal/topology"
)

func TestMemoizeSignalRoundTrip(t *testing.T) {
	r := registry.New()
	fp := registry.Fingerprint{Name: "FREQ", Domain: topology.DomainCPU, Idx: 2}

	_, ok := r.LookupSignal(fp)
	assert.False(t, ok)

	r.MemoizeSignal(fp, 3)
	h, ok := r.LookupSignal(fp)
	require.True(t, ok)
	assert.Equal(t, 3, h)
}

func TestFindSignalProvidersFallbackSet(t *testing.T) {
	r := registry.New()
	base := providertest.NewConstant("P_base", "TEMP", topology.DomainBoard, 1, "CTL")
	override := providertest.NewConstant("P_override", "TEMP", topology.DomainBoard, 2, "CTL")
	unrelated := providertest.NewConstant("P_other", "OTHER", topology.DomainBoard, 3, "CTL2")

	require.NoError(t, r.RegisterProvider(base))
	require.NoError(t, r.RegisterProvider(override))
	require.NoError(t, r.RegisterProvider(unrelated))

	candidates := r.FindSignalProviders("TEMP")
	require.Len(t, candidates, 2)
	assert.Equal(t, "P_override", candidates[0].Name())
	assert.Equal(t, "P_base", candidates[1].Name())

	assert.Empty(t, r.FindSignalProviders("DOES_NOT_EXIST"))
}

func TestFindSignalProvidersRestrictsToNativeDomain(t *testing.T) {
	r := registry.New()
	boardLevel := providertest.NewConstant("P_board", "TEMP", topology.DomainBoard, 1, "CTL")
	cpuLevel := providertest.NewConstant("P_cpu", "TEMP", topology.DomainCPU, 2, "CTL")

	require.NoError(t, r.RegisterProvider(boardLevel))
	require.NoError(t, r.RegisterProvider(cpuLevel))

	candidates := r.FindSignalProviders("TEMP")
	require.Len(t, candidates, 1)
	assert.Equal(t, "P_cpu", candidates[0].Name())
}

func TestRegisterProviderRejectedAfterSave(t *testing.T) {
	r := registry.New()
	r.MarkSaved()

	err := r.RegisterProvider(providertest.NewConstant("P1", "TEMP", topology.DomainBoard, 1, "CTL"))
	assert.Error(t, err)
}

func TestFreezeAndSamplesFresh(t *testing.T) {
	r := registry.New()
	assert.False(t, r.Frozen())
	r.Freeze()
	assert.True(t, r.Frozen())

	assert.False(t, r.SamplesFresh())
	r.MarkSamplesFresh()
	assert.True(t, r.SamplesFresh())
}

func TestCanRestoreAfterMarkSaved(t *testing.T) {
	r := registry.New()
	assert.False(t, r.CanRestore())
	r.MarkSaved()
	assert.True(t, r.CanRestore())
}

func TestActiveSignalSlots(t *testing.T) {
	r := registry.New()
	p := providertest.NewConstant("P1", "TEMP", topology.DomainBoard, 1, "CTL")

	handle := r.AddDirectSignal(p, 0)
	assert.Equal(t, 0, handle)
	assert.Equal(t, 1, r.NumSignalSlots())

	slot, ok := r.SignalSlot(handle)
	require.True(t, ok)
	assert.Equal(t, p, slot.Provider)

	_, ok = r.SignalSlot(99)
	assert.False(t, ok)
}

func TestValidatedSignal(t *testing.T) {
	r := registry.New()
	assert.False(t, r.ValidatedSignal("FREQ"))
	r.MarkValidatedSignal("FREQ")
	assert.True(t, r.ValidatedSignal("FREQ"))
}
