// Package msr implements a provider backed by simulated per-CPU model
// specific registers: frequency, energy, and power signals and a
// frequency control, scoped to the cpu and package domains. It stands in
// for direct /dev/cpu/N/msr access without the MSR-table parsing or
// msr-safe allowlist machinery a real register file would need.
package msr

import (
	"fmt"
	"sync"
	"time"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

const (
	signalFrequency  = "MSR::PERF_STATUS:FREQ"
	signalEnergy     = "MSR::PKG_ENERGY_STATUS:ENERGY"
	signalPower      = "MSR::PACKAGE_POWER_SQAV:POWER"
	controlFrequency = "MSR::PERF_CTL:FREQ"
)

// Group is a simulated MSRIOGroup equivalent. CPU frequency is held per
// logical CPU; writing controlFrequency updates the state a subsequent
// signalFrequency read observes, and energy accumulates with elapsed time
// scaled by the current power draw so repeated reads behave plausibly
// under read_batch polling.
type Group struct {
	*provider.Base

	mu       sync.Mutex
	freqHz   map[int]float64
	energyJ  map[int]float64
	lastSeen map[int]time.Time
	minFreq  float64
	maxFreq  float64
}

// New constructs the MSR provider for an oracle with numCPU logical CPUs,
// seeding every CPU at a mid-range frequency.
func New(numCPU int) *Group {
	g := &Group{
		freqHz:   make(map[int]float64, numCPU),
		energyJ:  make(map[int]float64, numCPU),
		lastSeen: make(map[int]time.Time, numCPU),
		minFreq:  1.0e9,
		maxFreq:  3.5e9,
	}
	for i := 0; i < numCPU; i++ {
		g.freqHz[i] = 2.2e9
	}

	g.Base = &provider.Base{
		ProviderName: "MSR",
		Signals: map[string]provider.SignalDef{
			signalFrequency: {Domain: topology.DomainCPU, Meta: provider.Meta{
				Aggregation: provider.AggAverage,
				Description: "Current CPU clock frequency",
				Behavior:    provider.BehaviorVariable,
			}},
			signalEnergy: {Domain: topology.DomainPackage, Meta: provider.Meta{
				Aggregation: provider.AggSum,
				Description: "Cumulative package energy in joules",
				Behavior:    provider.BehaviorMonotone,
			}},
			signalPower: {Domain: topology.DomainPackage, Meta: provider.Meta{
				Aggregation: provider.AggSum,
				Description: "Instantaneous package power in watts",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		Controls: map[string]provider.ControlDef{
			controlFrequency: {Domain: topology.DomainCPU, Meta: provider.Meta{
				Aggregation: provider.AggExpectSame,
				Description: "Requested CPU clock frequency",
				Behavior:    provider.BehaviorVariable,
			}},
		},
		ReadFn:  g.read,
		WriteFn: g.write,
	}
	return g
}

func (g *Group) read(name string, domain topology.Domain, idx int) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch name {
	case signalFrequency, controlFrequency:
		f, ok := g.freqHz[idx]
		if !ok {
			return 0, fmt.Errorf("msr: no such cpu %d", idx)
		}
		return f, nil
	case signalPower:
		// Power is modeled from the mean frequency, relative to its span,
		// of every simulated CPU (not only the package's own CPUs).
		return 45.0 + 90.0*g.packageLoad(idx), nil
	case signalEnergy:
		g.accumulateEnergy(idx)
		return g.energyJ[idx], nil
	default:
		return 0, fmt.Errorf("msr: unknown signal %q", name)
	}
}

func (g *Group) write(name string, domain topology.Domain, idx int, value float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch name {
	case controlFrequency:
		if value < g.minFreq || value > g.maxFreq {
			return fmt.Errorf("msr: requested frequency %g out of range [%g,%g]", value, g.minFreq, g.maxFreq)
		}
		g.freqHz[idx] = value
		return nil
	default:
		return fmt.Errorf("msr: unknown control %q", name)
	}
}

// packageLoad returns a 0..1 load estimate averaged over every simulated
// CPU; packageIdx does not select a subset. It is used only to make the
// simulated power signal move with frequency.
func (g *Group) packageLoad(packageIdx int) float64 {
	var sum, n float64
	for _, f := range g.freqHz {
		sum += (f - g.minFreq) / (g.maxFreq - g.minFreq)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func (g *Group) accumulateEnergy(packageIdx int) {
	now := time.Now()
	last, ok := g.lastSeen[packageIdx]
	g.lastSeen[packageIdx] = now
	if !ok {
		return
	}
	elapsed := now.Sub(last).Seconds()
	g.energyJ[packageIdx] += elapsed * (45.0 + 90.0*g.packageLoad(packageIdx))
}
