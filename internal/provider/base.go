package provider

import (
	"fmt"

	"github.com/geopm-project/platformio-go/internal/topology"
)

// SignalDef declares one signal name's native domain and metadata.
type SignalDef struct {
	Domain topology.Domain
	Meta   Meta
}

// ControlDef declares one control name's native domain and metadata.
type ControlDef struct {
	Domain topology.Domain
	Meta   Meta
}

type signalSlot struct {
	name   string
	domain topology.Domain
	idx    int
	value  float64
}

type controlSlot struct {
	name    string
	domain  topology.Domain
	idx     int
	pending float64
	applied bool
}

// SavedSetting is one captured (name, domain, idx, value) control setting,
// as recorded by SaveControls and consumed by internal/save when writing
// the persistence-format JSON file.
type SavedSetting struct {
	Name   string
	Domain topology.Domain
	Idx    int
	Value  float64
}

// Base implements the batch-slot bookkeeping (push/read_batch/sample/
// write_batch/adjust) shared by every concrete provider, so msr, sysfs,
// gpu, cpuinfo, and constconfig only need to supply their own read/write
// primitives plus a name->domain/meta table.
type Base struct {
	ProviderName string
	Signals      map[string]SignalDef
	Controls     map[string]ControlDef

	ReadFn  func(name string, domain topology.Domain, idx int) (float64, error)
	WriteFn func(name string, domain topology.Domain, idx int, value float64) error

	sigSlots  []signalSlot
	ctrlSlots []controlSlot
	saved     []SavedSetting
}

// Name implements Provider.
func (b *Base) Name() string { return b.ProviderName }

// SignalNames implements Provider.
func (b *Base) SignalNames() []string {
	names := make([]string, 0, len(b.Signals))
	for n := range b.Signals {
		names = append(names, n)
	}
	return names
}

// ControlNames implements Provider.
func (b *Base) ControlNames() []string {
	names := make([]string, 0, len(b.Controls))
	for n := range b.Controls {
		names = append(names, n)
	}
	return names
}

// SignalDomain implements Provider.
func (b *Base) SignalDomain(name string) (topology.Domain, bool) {
	d, ok := b.Signals[name]
	return d.Domain, ok
}

// ControlDomain implements Provider.
func (b *Base) ControlDomain(name string) (topology.Domain, bool) {
	d, ok := b.Controls[name]
	return d.Domain, ok
}

// SignalMeta implements Provider.
func (b *Base) SignalMeta(name string) (Meta, bool) {
	d, ok := b.Signals[name]
	return d.Meta, ok
}

// ControlMeta implements Provider.
func (b *Base) ControlMeta(name string) (Meta, bool) {
	d, ok := b.Controls[name]
	return d.Meta, ok
}

// ReadSignal implements Provider.
func (b *Base) ReadSignal(name string, domain topology.Domain, idx int) (float64, error) {
	if _, ok := b.Signals[name]; !ok {
		return 0, fmt.Errorf("%s: unknown signal %q", b.ProviderName, name)
	}
	return b.ReadFn(name, domain, idx)
}

// WriteControl implements Provider.
func (b *Base) WriteControl(name string, domain topology.Domain, idx int, value float64) error {
	if _, ok := b.Controls[name]; !ok {
		return fmt.Errorf("%s: unknown control %q", b.ProviderName, name)
	}
	return b.WriteFn(name, domain, idx, value)
}

// PushSignal implements Provider.
func (b *Base) PushSignal(name string, domain topology.Domain, idx int) (int, error) {
	for i, s := range b.sigSlots {
		if s.name == name && s.domain == domain && s.idx == idx {
			return i, nil
		}
	}
	b.sigSlots = append(b.sigSlots, signalSlot{name: name, domain: domain, idx: idx})
	return len(b.sigSlots) - 1, nil
}

// PushControl implements Provider.
func (b *Base) PushControl(name string, domain topology.Domain, idx int) (int, error) {
	for i, s := range b.ctrlSlots {
		if s.name == name && s.domain == domain && s.idx == idx {
			return i, nil
		}
	}
	b.ctrlSlots = append(b.ctrlSlots, controlSlot{name: name, domain: domain, idx: idx})
	return len(b.ctrlSlots) - 1, nil
}

// ReadBatch implements Provider.
func (b *Base) ReadBatch() error {
	for i := range b.sigSlots {
		s := &b.sigSlots[i]
		v, err := b.ReadFn(s.name, s.domain, s.idx)
		if err != nil {
			return fmt.Errorf("%s: read_batch: %w", b.ProviderName, err)
		}
		s.value = v
	}
	return nil
}

// WriteBatch implements Provider.
func (b *Base) WriteBatch() error {
	for i := range b.ctrlSlots {
		s := &b.ctrlSlots[i]
		if !s.applied {
			continue
		}
		if err := b.WriteFn(s.name, s.domain, s.idx, s.pending); err != nil {
			return fmt.Errorf("%s: write_batch: %w", b.ProviderName, err)
		}
	}
	return nil
}

// Sample implements Provider.
func (b *Base) Sample(handle int) (float64, error) {
	if handle < 0 || handle >= len(b.sigSlots) {
		return 0, fmt.Errorf("%s: sample: handle %d out of range", b.ProviderName, handle)
	}
	return b.sigSlots[handle].value, nil
}

// Adjust implements Provider. It performs no I/O; the value is flushed
// to hardware by the next WriteBatch.
func (b *Base) Adjust(handle int, value float64) error {
	if handle < 0 || handle >= len(b.ctrlSlots) {
		return fmt.Errorf("%s: adjust: handle %d out of range", b.ProviderName, handle)
	}
	b.ctrlSlots[handle].pending = value
	b.ctrlSlots[handle].applied = true
	return nil
}

// SaveControls implements Provider by reading back, via ReadFn, the
// current value of every pushed control. Controls written only through
// WriteControl (never pushed) are not captured, and a pushed control whose
// ReadFn call fails is skipped. Providers that need a different capture
// override this method.
func (b *Base) SaveControls() error {
	b.saved = b.saved[:0]
	for name := range b.Controls {
		for _, s := range b.ctrlSlots {
			if s.name != name {
				continue
			}
			v, err := b.ReadFn(name, s.domain, s.idx)
			if err != nil {
				continue // best-effort: not every control is readable
			}
			b.saved = append(b.saved, SavedSetting{Name: name, Domain: s.domain, Idx: s.idx, Value: v})
		}
	}
	return nil
}

// RestoreControls implements Provider.
func (b *Base) RestoreControls() error {
	for _, s := range b.saved {
		if err := b.WriteFn(s.Name, s.Domain, s.Idx, s.Value); err != nil {
			return fmt.Errorf("%s: restore_controls: %w", b.ProviderName, err)
		}
	}
	return nil
}

// SavedSettings exposes the last SaveControls snapshot, for providers that
// want to serialize it to a save-file (internal/save).
func (b *Base) SavedSettings() []SavedSetting {
	return append([]SavedSetting(nil), b.saved...)
}
