// Package providertest supplies small, deterministic provider.Base
// fixtures for exercising the registry and orchestrator in tests, playing
// the role that in-memory fake IOGroups play in the original GEOPM test
// suite. Values are fixed or counter-driven rather than random, so
// assertions on sampled/read values are exact.
package providertest

import (
	"fmt"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// Fixture wraps a *provider.Base along with hooks tests use to make its
// underlying reads/writes fail on demand, to exercise error propagation
// and fallback.
type Fixture struct {
	*provider.Base

	controlName string
	domain      topology.Domain
	current     map[int]float64
	saved       map[int]float64

	failRead  map[string]bool
	failWrite map[string]bool
	writes    []Write
}

// Write records one WriteControl/WriteBatch call observed by a Fixture.
type Write struct {
	Name   string
	Domain topology.Domain
	Idx    int
	Value  float64
}

// FailRead makes every subsequent read of name return an error, until
// undone with AllowRead.
func (f *Fixture) FailRead(name string)  { f.failRead[name] = true }
func (f *Fixture) AllowRead(name string) { delete(f.failRead, name) }

// FailWrite makes every subsequent write of name return an error.
func (f *Fixture) FailWrite(name string)  { f.failWrite[name] = true }
func (f *Fixture) AllowWrite(name string) { delete(f.failWrite, name) }

// Writes returns every write observed so far, in order.
func (f *Fixture) Writes() []Write { return append([]Write(nil), f.writes...) }

// NewConstant builds a fixture provider named providerName exposing one
// signal ("TEMP" by default callers may rename via signalName) that always
// reads value in domain d, and one control ("FREQ"-like, callers rename
// via controlName) that records writes and echoes back the last value
// written (or initial if never written).
func NewConstant(providerName, signalName string, d topology.Domain, value float64, controlName string) *Fixture {
	current := map[int]float64{0: value}
	fx := &Fixture{
		controlName: controlName,
		domain:      d,
		current:     current,
		failRead:    map[string]bool{},
		failWrite:   map[string]bool{},
	}

	fx.Base = &provider.Base{
		ProviderName: providerName,
		Signals: map[string]provider.SignalDef{
			signalName: {Domain: d, Meta: provider.Meta{
				Aggregation: provider.AggAverage,
				Description: "fixture signal",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		Controls: map[string]provider.ControlDef{
			controlName: {Domain: d, Meta: provider.Meta{
				Aggregation: provider.AggExpectSame,
				Description: "fixture control",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		ReadFn: func(name string, domain topology.Domain, idx int) (float64, error) {
			if fx.failRead[name] {
				return 0, fmt.Errorf("%s: injected read failure for %q", providerName, name)
			}
			if name == controlName {
				if v, ok := current[idx]; ok {
					return v, nil
				}
				return value, nil
			}
			return value, nil
		},
		WriteFn: func(name string, domain topology.Domain, idx int, v float64) error {
			if fx.failWrite[name] {
				return fmt.Errorf("%s: injected write failure for %q", providerName, name)
			}
			current[idx] = v
			fx.writes = append(fx.writes, Write{Name: name, Domain: domain, Idx: idx, Value: v})
			return nil
		},
	}
	return fx
}

// SaveControls snapshots every control value this fixture currently holds,
// shadowing provider.Base's batch-slot-driven implementation: fixtures are
// exercised through one-shot WriteControl in tests as often as through
// push/adjust, so save must capture current state regardless of whether
// anything was ever pushed.
func (f *Fixture) SaveControls() error {
	f.saved = make(map[int]float64, len(f.current))
	for idx, v := range f.current {
		f.saved[idx] = v
	}
	return nil
}

// RestoreControls writes back the most recent SaveControls snapshot.
func (f *Fixture) RestoreControls() error {
	for idx, v := range f.saved {
		if err := f.WriteControl(f.controlName, f.domain, idx, v); err != nil {
			return err
		}
	}
	return nil
}

// SavedSettings exposes the last SaveControls snapshot in
// provider.SavedSetting form, for exercising the directory-based
// save/restore variants.
func (f *Fixture) SavedSettings() []provider.SavedSetting {
	settings := make([]provider.SavedSetting, 0, len(f.saved))
	for idx, v := range f.saved {
		settings = append(settings, provider.SavedSetting{Name: f.controlName, Domain: f.domain, Idx: idx, Value: v})
	}
	return settings
}
