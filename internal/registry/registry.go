// Package registry implements the orchestrator's bookkeeping: the ordered
// provider list, the Fingerprint memoization table, and the active
// batch-slot tables for signals and controls, direct (provider-backed) or
// combined (cross-domain). The state it holds is internal to the
// orchestrator, hence its own package rather than exported fields on
// Orchestrator.
package registry

import (
	"fmt"

	"github.com/geopm-project/platformio-go/internal/combined"
	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// Fingerprint is the (name, domain, idx) triple keying batch-slot
// memoization: each triple resolves to at most one signal handle and at
// most one control handle.
type Fingerprint struct {
	Name   string
	Domain topology.Domain
	Idx    int
}

// SignalSlot is one entry of the active-signal table. A direct slot
// forwards to Provider/ProviderHandle; a combined slot (Provider == nil)
// reduces the samples of the Operands slots through Combined.
type SignalSlot struct {
	Provider       provider.Provider
	ProviderHandle int
	Combined       *combined.Signal
	Operands       []int
}

// ControlSlot mirrors SignalSlot for controls.
type ControlSlot struct {
	Provider       provider.Provider
	ProviderHandle int
	Combined       *combined.Control
	Operands       []int
}

// Registry holds every piece of orchestrator state that outlives a single
// call: registered providers, memoized fingerprints, and active slots.
type Registry struct {
	providers []provider.Provider

	existingSignal  map[Fingerprint]int
	existingControl map[Fingerprint]int

	activeSignal  []SignalSlot
	activeControl []ControlSlot

	validatedSignalName map[string]bool

	frozen       bool // true once read_batch or adjust has been called
	samplesFresh bool
	doRestore    bool // true once save_controls has succeeded (blocks RegisterProvider, enables restore)
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		existingSignal:      make(map[Fingerprint]int),
		existingControl:     make(map[Fingerprint]int),
		validatedSignalName: make(map[string]bool),
	}
}

// RegisterProvider appends p to the provider list. It is rejected once a
// save_controls has succeeded, matching register_iogroup's rejection
// after m_do_restore is set.
func (r *Registry) RegisterProvider(p provider.Provider) error {
	if r.doRestore {
		return fmt.Errorf("registry: provider cannot be registered after save_controls")
	}
	r.providers = append(r.providers, p)
	return nil
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []provider.Provider {
	return append([]provider.Provider(nil), r.providers...)
}

// FindSignalProviders returns every provider willing to participate in
// resolving name, in reverse registration order, restricted to the native
// domain declared by the first (highest-priority) provider that claims
// it. Providers declaring a conflicting native domain cannot serve as
// fallbacks, so they are dropped.
func (r *Registry) FindSignalProviders(name string) []provider.Provider {
	var result []provider.Provider
	var nativeDomain topology.Domain
	haveNative := false
	for i := len(r.providers) - 1; i >= 0; i-- {
		p := r.providers[i]
		d, ok := p.SignalDomain(name)
		if !ok {
			continue
		}
		if !haveNative {
			result = append(result, p)
			nativeDomain = d
			haveNative = true
		} else if d == nativeDomain {
			result = append(result, p)
		}
	}
	return result
}

// FindControlProviders is FindSignalProviders for controls.
func (r *Registry) FindControlProviders(name string) []provider.Provider {
	var result []provider.Provider
	var nativeDomain topology.Domain
	haveNative := false
	for i := len(r.providers) - 1; i >= 0; i-- {
		p := r.providers[i]
		d, ok := p.ControlDomain(name)
		if !ok {
			continue
		}
		if !haveNative {
			result = append(result, p)
			nativeDomain = d
			haveNative = true
		} else if d == nativeDomain {
			result = append(result, p)
		}
	}
	return result
}

// SignalNames returns the union of every provider's signal names.
func (r *Registry) SignalNames() []string {
	seen := make(map[string]bool)
	var result []string
	for _, p := range r.providers {
		for _, n := range p.SignalNames() {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}
	return result
}

// ControlNames returns the union of every provider's control names.
func (r *Registry) ControlNames() []string {
	seen := make(map[string]bool)
	var result []string
	for _, p := range r.providers {
		for _, n := range p.ControlNames() {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}
	return result
}

// LookupSignal returns the memoized handle for fp, if any.
func (r *Registry) LookupSignal(fp Fingerprint) (int, bool) {
	h, ok := r.existingSignal[fp]
	return h, ok
}

// LookupControl returns the memoized handle for fp, if any.
func (r *Registry) LookupControl(fp Fingerprint) (int, bool) {
	h, ok := r.existingControl[fp]
	return h, ok
}

// MemoizeSignal records that fp resolved to handle.
func (r *Registry) MemoizeSignal(fp Fingerprint, handle int) { r.existingSignal[fp] = handle }

// MemoizeControl records that fp resolved to handle.
func (r *Registry) MemoizeControl(fp Fingerprint, handle int) { r.existingControl[fp] = handle }

// Frozen reports whether pushes are no longer permitted.
func (r *Registry) Frozen() bool { return r.frozen }

// Freeze marks the registry as frozen against new pushes. Called once by
// the first read_batch or adjust.
func (r *Registry) Freeze() { r.frozen = true }

// SamplesFresh reports whether read_batch has ever been called.
func (r *Registry) SamplesFresh() bool { return r.samplesFresh }

// MarkSamplesFresh records that read_batch has completed at least once.
func (r *Registry) MarkSamplesFresh() { r.samplesFresh = true }

// MarkSaved records that save_controls has succeeded: it blocks further
// RegisterProvider calls and permits restore_controls.
func (r *Registry) MarkSaved() { r.doRestore = true }

// CanRestore reports whether restore_controls is permitted.
func (r *Registry) CanRestore() bool { return r.doRestore }

// ValidatedSignal reports whether name has ever passed the push_signal
// validation read, for any Fingerprint.
func (r *Registry) ValidatedSignal(name string) bool { return r.validatedSignalName[name] }

// MarkValidatedSignal records that name has passed a validation read.
//
// This is keyed on name alone, not the full Fingerprint: once any
// (domain, idx) combination for name has validated successfully, every
// other combination skips its own validation read. For a provider whose
// read permissions vary per index (e.g. a per-core MSR lockable on some
// cores but not others), this can mask a later push's failure until its
// first read_batch.
func (r *Registry) MarkValidatedSignal(name string) { r.validatedSignalName[name] = true }

// AddDirectSignal allocates a new active-signal slot backed directly by a
// provider handle, returning the orchestrator-level handle.
func (r *Registry) AddDirectSignal(p provider.Provider, providerHandle int) int {
	r.activeSignal = append(r.activeSignal, SignalSlot{Provider: p, ProviderHandle: providerHandle})
	return len(r.activeSignal) - 1
}

// AddCombinedSignal allocates a new active-signal slot backed by a
// CombinedSignal over operand handles (which must themselves be active
// signal slots).
func (r *Registry) AddCombinedSignal(operands []int, sig *combined.Signal) int {
	r.activeSignal = append(r.activeSignal, SignalSlot{Combined: sig, Operands: operands})
	return len(r.activeSignal) - 1
}

// AddDirectControl allocates a new active-control slot backed directly by
// a provider handle.
func (r *Registry) AddDirectControl(p provider.Provider, providerHandle int) int {
	r.activeControl = append(r.activeControl, ControlSlot{Provider: p, ProviderHandle: providerHandle})
	return len(r.activeControl) - 1
}

// AddCombinedControl allocates a new active-control slot backed by a
// CombinedControl over operand handles.
func (r *Registry) AddCombinedControl(operands []int, ctrl *combined.Control) int {
	r.activeControl = append(r.activeControl, ControlSlot{Combined: ctrl, Operands: operands})
	return len(r.activeControl) - 1
}

// SignalSlot returns the active-signal slot at handle.
func (r *Registry) SignalSlot(handle int) (SignalSlot, bool) {
	if handle < 0 || handle >= len(r.activeSignal) {
		return SignalSlot{}, false
	}
	return r.activeSignal[handle], true
}

// ControlSlot returns the active-control slot at handle.
func (r *Registry) ControlSlot(handle int) (ControlSlot, bool) {
	if handle < 0 || handle >= len(r.activeControl) {
		return ControlSlot{}, false
	}
	return r.activeControl[handle], true
}

// NumSignalSlots returns how many active-signal slots exist.
func (r *Registry) NumSignalSlots() int { return len(r.activeSignal) }

// NumControlSlots returns how many active-control slots exist.
func (r *Registry) NumControlSlots() int { return len(r.activeControl) }
