// Package orchestrator implements the public contract of the platform
// telemetry and control plane: provider registration, name enumeration,
// push/batch/sample/adjust, one-shot read/write, save/restore, and
// metadata queries. The orchestrator is an explicit owned object with no
// process-wide singleton, and every operation returns a tagged error
// rather than panicking.
package orchestrator

import (
	"fmt"
	"math"

	"github.com/geopm-project/platformio-go/internal/combined"
	"github.com/geopm-project/platformio-go/internal/ioerr"
	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/registry"
	"github.com/geopm-project/platformio-go/internal/topology"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

// Orchestrator is the single owned entry point embedding applications
// construct. It is not safe for concurrent use; callers must serialize
// externally.
type Orchestrator struct {
	topo topology.Oracle
	reg  *registry.Registry
}

// New constructs an Orchestrator over topo. Lifetime begins here and
// ends when the embedding application drops its reference; there is no
// global instance.
func New(topo topology.Oracle) *Orchestrator {
	return &Orchestrator{topo: topo, reg: registry.New()}
}

// RegisterProvider adds p to the provider list. Registration order is
// stable and determines resolution priority (most recently registered
// wins); registration is rejected once SaveControls has succeeded.
func (o *Orchestrator) RegisterProvider(p provider.Provider) error {
	if err := o.reg.RegisterProvider(p); err != nil {
		return ioerr.New(ioerr.KindInvalidArgument, "register_provider", err.Error()).WithName(p.Name())
	}
	logging.Info("Orchestrator", "registered provider %s (%d signals, %d controls)",
		p.Name(), len(p.SignalNames()), len(p.ControlNames()))
	return nil
}

// EnumerateSignals returns the union of every provider's signal names.
func (o *Orchestrator) EnumerateSignals() []string { return o.reg.SignalNames() }

// EnumerateControls returns the union of every provider's control names.
func (o *Orchestrator) EnumerateControls() []string { return o.reg.ControlNames() }

// SignalDomain returns the native domain of the highest-priority provider
// declaring name.
func (o *Orchestrator) SignalDomain(name string) (topology.Domain, error) {
	candidates := o.reg.FindSignalProviders(name)
	if len(candidates) == 0 {
		return topology.DomainInvalid, ioerr.New(ioerr.KindUnknownName, "signal_domain", "no provider declares this signal").WithName(name)
	}
	d, _ := candidates[0].SignalDomain(name)
	return d, nil
}

// ControlDomain returns the native domain of the highest-priority provider
// declaring name.
func (o *Orchestrator) ControlDomain(name string) (topology.Domain, error) {
	candidates := o.reg.FindControlProviders(name)
	if len(candidates) == 0 {
		return topology.DomainInvalid, ioerr.New(ioerr.KindUnknownName, "control_domain", "no provider declares this control").WithName(name)
	}
	d, _ := candidates[0].ControlDomain(name)
	return d, nil
}

// IsAdjustSame reports whether adjusting this control at a coarser domain
// should apply the same setting to every sub-control, true for every
// aggregation hint except sum.
func (o *Orchestrator) IsAdjustSame(name string) (bool, error) {
	candidates := o.reg.FindControlProviders(name)
	if len(candidates) == 0 {
		return false, ioerr.New(ioerr.KindUnknownName, "is_adjust_same", "no provider declares this control").WithName(name)
	}
	meta, _ := candidates[0].ControlMeta(name)
	return meta.Aggregation != provider.AggSum, nil
}

func (o *Orchestrator) validateDomainIdx(op string, domain topology.Domain, idx int) error {
	if !domain.Valid() {
		return ioerr.New(ioerr.KindInvalidArgument, op, "domain kind is out of range")
	}
	count, err := o.topo.Count(domain)
	if err != nil {
		return ioerr.Newf(ioerr.KindInvalidArgument, op, "domain count unavailable: %v", err)
	}
	if idx < 0 || idx >= count {
		return ioerr.New(ioerr.KindInvalidArgument, op, "domain index is out of range").WithDomain(domain.String(), idx)
	}
	return nil
}

// PushSignal resolves (name, domain, idx) to a batch slot, reusing the
// memoized handle if this Fingerprint has been pushed before. Candidate
// providers are tried highest-priority first; a candidate whose native
// domain differs from the request is reached through domain conversion.
func (o *Orchestrator) PushSignal(name string, domain topology.Domain, idx int) (int, error) {
	if err := o.validateDomainIdx("push_signal", domain, idx); err != nil {
		return 0, err
	}
	fp := registry.Fingerprint{Name: name, Domain: domain, Idx: idx}
	if h, ok := o.reg.LookupSignal(fp); ok {
		return h, nil
	}
	if o.reg.Frozen() {
		return 0, ioerr.New(ioerr.KindBatchFrozen, "push_signal", "cannot push after read_batch or adjust").WithName(name)
	}

	candidates := o.reg.FindSignalProviders(name)
	if len(candidates) == 0 {
		return 0, ioerr.New(ioerr.KindUnknownName, "push_signal", "no provider declares this signal").WithName(name)
	}

	diag := ioerr.NewDiagnostic("push_signal", name)
	for _, p := range candidates {
		nd, _ := p.SignalDomain(name)
		if nd == domain {
			handle, err := o.pushSignalDirect(p, name, domain, idx)
			if err != nil {
				diag.Add(p.Name(), err)
				continue
			}
			o.reg.MemoizeSignal(fp, handle)
			return handle, nil
		}
		handle, err := o.pushSignalConvertDomain(name, domain, idx, nd)
		if err != nil {
			diag.Add(p.Name(), err)
			continue
		}
		o.reg.MemoizeSignal(fp, handle)
		return handle, nil
	}
	if diag.Empty() {
		return 0, ioerr.New(ioerr.KindNoProvider, "push_signal", "no provider supports this domain for this signal").WithName(name).WithDomain(domain.String(), idx)
	}
	return 0, diag.Err()
}

func (o *Orchestrator) pushSignalDirect(p provider.Provider, name string, domain topology.Domain, idx int) (int, error) {
	if !o.reg.ValidatedSignal(name) {
		if _, err := p.ReadSignal(name, domain, idx); err != nil && !ioerr.IsNotImplemented(err) {
			return 0, err
		}
	}
	o.reg.MarkValidatedSignal(name)
	providerHandle, err := p.PushSignal(name, domain, idx)
	if err != nil {
		return 0, err
	}
	return o.reg.AddDirectSignal(p, providerHandle), nil
}

// pushSignalConvertDomain recursively pushes the signal at its native
// domain for every nested index, then wraps the resulting handles in a
// CombinedSignal using the name's declared aggregation function.
func (o *Orchestrator) pushSignalConvertDomain(name string, domain topology.Domain, idx int, native topology.Domain) (int, error) {
	if !topology.Contains(native, domain) {
		return 0, ioerr.New(ioerr.KindInvalidArgument, "push_signal", "requested domain does not contain the native domain").WithName(name).WithDomain(domain.String(), idx)
	}
	indices, ok, err := o.topo.Nested(native, domain, idx)
	if err != nil {
		return 0, ioerr.Newf(ioerr.KindInvalidArgument, "push_signal", "topology nesting query failed: %v", err).WithName(name)
	}
	if !ok {
		return 0, ioerr.New(ioerr.KindInvalidArgument, "push_signal", "requested domain is not nested over the native domain").WithName(name).WithDomain(domain.String(), idx)
	}

	operands := make([]int, 0, len(indices))
	for _, i := range indices {
		h, err := o.PushSignal(name, native, i)
		if err != nil {
			return 0, err
		}
		operands = append(operands, h)
	}

	meta, err := o.signalMeta(name)
	if err != nil {
		return 0, err
	}
	sig := combined.NewSignal(meta.Aggregation)
	return o.reg.AddCombinedSignal(operands, sig), nil
}

// PushControl is PushSignal's counterpart for controls.
func (o *Orchestrator) PushControl(name string, domain topology.Domain, idx int) (int, error) {
	if err := o.validateDomainIdx("push_control", domain, idx); err != nil {
		return 0, err
	}
	fp := registry.Fingerprint{Name: name, Domain: domain, Idx: idx}
	if h, ok := o.reg.LookupControl(fp); ok {
		return h, nil
	}
	if o.reg.Frozen() {
		return 0, ioerr.New(ioerr.KindBatchFrozen, "push_control", "cannot push after read_batch or adjust").WithName(name)
	}

	candidates := o.reg.FindControlProviders(name)
	if len(candidates) == 0 {
		return 0, ioerr.New(ioerr.KindUnknownName, "push_control", "no provider declares this control").WithName(name)
	}

	diag := ioerr.NewDiagnostic("push_control", name)
	for _, p := range candidates {
		nd, _ := p.ControlDomain(name)
		if nd == domain {
			handle, err := o.pushControlDirect(p, name, domain, idx)
			if err != nil {
				diag.Add(p.Name(), err)
				continue
			}
			o.reg.MemoizeControl(fp, handle)
			return handle, nil
		}
		handle, err := o.pushControlConvertDomain(name, domain, idx, nd)
		if err != nil {
			diag.Add(p.Name(), err)
			continue
		}
		o.reg.MemoizeControl(fp, handle)
		return handle, nil
	}
	if diag.Empty() {
		return 0, ioerr.New(ioerr.KindNoProvider, "push_control", "no provider supports this domain for this control").WithName(name).WithDomain(domain.String(), idx)
	}
	return 0, diag.Err()
}

// pushControlDirect validates a control by reading it back as a signal of
// the same name and writing the value read, when the provider also
// exposes a signal under that name; most controls here have no such
// readback alias, in which case validation is skipped the same way a
// NotImplemented validation read is, since there is nothing to
// round-trip.
func (o *Orchestrator) pushControlDirect(p provider.Provider, name string, domain topology.Domain, idx int) (int, error) {
	if sigDomain, ok := p.SignalDomain(name); ok && sigDomain == domain {
		v, err := p.ReadSignal(name, domain, idx)
		if err != nil && !ioerr.IsNotImplemented(err) {
			return 0, err
		}
		if err == nil {
			if err := p.WriteControl(name, domain, idx, v); err != nil && !ioerr.IsNotImplemented(err) {
				return 0, err
			}
		}
	}
	providerHandle, err := p.PushControl(name, domain, idx)
	if err != nil {
		return 0, err
	}
	return o.reg.AddDirectControl(p, providerHandle), nil
}

func (o *Orchestrator) pushControlConvertDomain(name string, domain topology.Domain, idx int, native topology.Domain) (int, error) {
	if !topology.Contains(native, domain) {
		return 0, ioerr.New(ioerr.KindInvalidArgument, "push_control", "requested domain does not contain the native domain").WithName(name).WithDomain(domain.String(), idx)
	}
	indices, ok, err := o.topo.Nested(native, domain, idx)
	if err != nil {
		return 0, ioerr.Newf(ioerr.KindInvalidArgument, "push_control", "topology nesting query failed: %v", err).WithName(name)
	}
	if !ok {
		return 0, ioerr.New(ioerr.KindInvalidArgument, "push_control", "requested domain is not nested over the native domain").WithName(name).WithDomain(domain.String(), idx)
	}

	operands := make([]int, 0, len(indices))
	for _, i := range indices {
		h, err := o.PushControl(name, native, i)
		if err != nil {
			return 0, err
		}
		operands = append(operands, h)
	}

	adjustSame, err := o.IsAdjustSame(name)
	if err != nil {
		return 0, err
	}
	ctrl, err := combined.NewControl(len(operands), adjustSame)
	if err != nil {
		return 0, ioerr.Newf(ioerr.KindRuntime, "push_control", "%v", err).WithName(name)
	}
	return o.reg.AddCombinedControl(operands, ctrl), nil
}

// ReadBatch refreshes every pushed signal's sampled value by invoking each
// provider's batch read, in registration order. It freezes further pushes
// and makes Sample legal.
func (o *Orchestrator) ReadBatch() error {
	for _, p := range o.reg.Providers() {
		if err := p.ReadBatch(); err != nil {
			return ioerr.Newf(ioerr.KindIo, "read_batch", "%v", err).WithName(p.Name())
		}
	}
	o.reg.Freeze()
	o.reg.MarkSamplesFresh()
	return nil
}

// WriteBatch flushes every pushed control's last-adjusted value to
// hardware, in registration order.
func (o *Orchestrator) WriteBatch() error {
	for _, p := range o.reg.Providers() {
		if err := p.WriteBatch(); err != nil {
			return ioerr.Newf(ioerr.KindIo, "write_batch", "%v", err).WithName(p.Name())
		}
	}
	return nil
}

// Sample returns handle's most recent batch-read value, recursively
// reducing CombinedSignal operands.
func (o *Orchestrator) Sample(handle int) (float64, error) {
	if !o.reg.SamplesFresh() {
		return 0, ioerr.New(ioerr.KindNotReady, "sample", "read_batch has not been called")
	}
	slot, ok := o.reg.SignalSlot(handle)
	if !ok {
		return 0, ioerr.New(ioerr.KindInvalidArgument, "sample", "handle out of range")
	}
	if slot.Provider != nil {
		v, err := slot.Provider.Sample(slot.ProviderHandle)
		if err != nil {
			return 0, ioerr.Newf(ioerr.KindIo, "sample", "%v", err).WithName(slot.Provider.Name())
		}
		return v, nil
	}
	operands := make([]float64, 0, len(slot.Operands))
	for _, op := range slot.Operands {
		v, err := o.Sample(op)
		if err != nil {
			return 0, err
		}
		operands = append(operands, v)
	}
	return slot.Combined.Sample(operands), nil
}

// Adjust stages value on handle, rejecting non-finite settings and
// recursively disaggregating CombinedControl handles. It freezes further
// pushes.
func (o *Orchestrator) Adjust(handle int, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ioerr.New(ioerr.KindInvalidArgument, "adjust", "setting is not finite")
	}
	slot, ok := o.reg.ControlSlot(handle)
	if !ok {
		return ioerr.New(ioerr.KindInvalidArgument, "adjust", "handle out of range")
	}
	o.reg.Freeze()
	if slot.Provider != nil {
		if err := slot.Provider.Adjust(slot.ProviderHandle, value); err != nil {
			return ioerr.Newf(ioerr.KindRuntime, "adjust", "%v", err).WithName(slot.Provider.Name())
		}
		return nil
	}
	scaled := slot.Combined.Adjust(value)
	for _, op := range slot.Operands {
		if err := o.Adjust(op, scaled); err != nil {
			return err
		}
	}
	return nil
}

// ReadSignal reads (name, domain, idx) immediately without touching batch
// state, falling back across candidates and performing inline cross-domain
// aggregation when no candidate's native domain matches.
func (o *Orchestrator) ReadSignal(name string, domain topology.Domain, idx int) (float64, error) {
	if err := o.validateDomainIdx("read_signal", domain, idx); err != nil {
		return 0, err
	}
	candidates := o.reg.FindSignalProviders(name)
	if len(candidates) == 0 {
		return 0, ioerr.New(ioerr.KindUnknownName, "read_signal", "no provider declares this signal").WithName(name)
	}

	diag := ioerr.NewDiagnostic("read_signal", name)
	for _, p := range candidates {
		nd, _ := p.SignalDomain(name)
		var v float64
		var err error
		if nd == domain {
			v, err = p.ReadSignal(name, domain, idx)
		} else {
			v, err = o.readSignalConvertDomain(p, name, domain, idx, nd)
		}
		if err != nil {
			diag.Add(p.Name(), err)
			continue
		}
		return v, nil
	}
	return 0, diag.Err()
}

func (o *Orchestrator) readSignalConvertDomain(p provider.Provider, name string, domain topology.Domain, idx int, native topology.Domain) (float64, error) {
	if !topology.Contains(native, domain) {
		return 0, fmt.Errorf("requested domain does not contain the native domain")
	}
	indices, ok, err := o.topo.Nested(native, domain, idx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("requested domain is not nested over the native domain")
	}
	operands := make([]float64, 0, len(indices))
	for _, i := range indices {
		v, err := p.ReadSignal(name, native, i)
		if err != nil {
			return 0, err
		}
		operands = append(operands, v)
	}
	meta, _ := p.SignalMeta(name)
	return meta.Aggregation.Aggregate(operands), nil
}

// WriteControl writes (name, domain, idx, value) immediately without
// touching batch state, falling back across candidates and performing
// inline cross-domain disaggregation. A sum-aggregated control divides
// value by the sub-count before delegating.
func (o *Orchestrator) WriteControl(name string, domain topology.Domain, idx int, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ioerr.New(ioerr.KindInvalidArgument, "write_control", "setting is not finite").WithName(name)
	}
	if err := o.validateDomainIdx("write_control", domain, idx); err != nil {
		return err
	}
	candidates := o.reg.FindControlProviders(name)
	if len(candidates) == 0 {
		return ioerr.New(ioerr.KindUnknownName, "write_control", "no provider declares this control").WithName(name)
	}

	diag := ioerr.NewDiagnostic("write_control", name)
	for _, p := range candidates {
		nd, _ := p.ControlDomain(name)
		var err error
		if nd == domain {
			err = p.WriteControl(name, domain, idx, value)
		} else {
			err = o.writeControlConvertDomain(p, name, domain, idx, value, nd)
		}
		if err != nil {
			diag.Add(p.Name(), err)
			continue
		}
		return nil
	}
	return diag.Err()
}

func (o *Orchestrator) writeControlConvertDomain(p provider.Provider, name string, domain topology.Domain, idx int, value float64, native topology.Domain) error {
	if !topology.Contains(native, domain) {
		return fmt.Errorf("requested domain does not contain the native domain")
	}
	indices, ok, err := o.topo.Nested(native, domain, idx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("requested domain is not nested over the native domain")
	}
	meta, _ := p.ControlMeta(name)
	v := value
	if meta.Aggregation == provider.AggSum {
		v = value / float64(len(indices))
	}
	for _, i := range indices {
		if err := p.WriteControl(name, native, i, v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) signalMeta(name string) (provider.Meta, error) {
	candidates := o.reg.FindSignalProviders(name)
	if len(candidates) == 0 {
		return provider.Meta{}, ioerr.New(ioerr.KindUnknownName, "signal_meta", "no provider declares this signal").WithName(name)
	}
	meta, _ := candidates[0].SignalMeta(name)
	return meta, nil
}
