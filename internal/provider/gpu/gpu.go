// Package gpu implements two alternative GPU telemetry providers, one
// styled after the NVIDIA management library and one after DCGM, exposing
// the same aliased signal and control names over different simulated
// vendor libraries. Registering both exercises the provider fallback
// chain: a caller asking for "GPU_POWER" is satisfied by whichever
// provider was registered last, falling back to the other if that one
// reports an I/O error.
package gpu

import (
	"fmt"
	"math/rand"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

const (
	SignalPower     = "GPU_POWER"
	SignalFrequency = "GPU_CORE_FREQUENCY_STATUS"
	SignalUtil      = "GPU_UTILIZATION"
	ControlPowerCap = "GPU_POWER_LIMIT_CONTROL"
)

func signals() map[string]provider.SignalDef {
	return map[string]provider.SignalDef{
		SignalPower: {Domain: topology.DomainGPU, Meta: provider.Meta{
			Aggregation: provider.AggSum,
			Description: "GPU board power in watts",
			Behavior:    provider.BehaviorVariable,
		}},
		SignalFrequency: {Domain: topology.DomainGPUChip, Meta: provider.Meta{
			Aggregation: provider.AggAverage,
			Description: "GPU core clock frequency",
			Behavior:    provider.BehaviorVariable,
		}},
		SignalUtil: {Domain: topology.DomainGPU, Meta: provider.Meta{
			Aggregation: provider.AggAverage,
			Description: "GPU streaming multiprocessor utilization, percent",
			Behavior:    provider.BehaviorVariable,
		}},
	}
}

func controls() map[string]provider.ControlDef {
	return map[string]provider.ControlDef{
		ControlPowerCap: {Domain: topology.DomainGPU, Meta: provider.Meta{
			Aggregation: provider.AggExpectSame,
			Description: "GPU board power cap in watts",
			Behavior:    provider.BehaviorVariable,
		}},
	}
}

// state is the simulated per-GPU register bank behind one backend's
// read/write closures; each backend owns an independent instance so they
// can disagree, which is the whole point of exercising fallback.
type state struct {
	powerCapW map[int]float64
	rng       *rand.Rand
}

func newState(seed int64) *state {
	return &state{powerCapW: make(map[int]float64), rng: rand.New(rand.NewSource(seed))}
}

func (s *state) read(name string, domain topology.Domain, idx int) (float64, error) {
	switch name {
	case SignalPower:
		cap, ok := s.powerCapW[idx]
		if !ok {
			cap = 300
		}
		return cap * (0.6 + 0.3*s.rng.Float64()), nil
	case SignalFrequency:
		return 1200e6 + s.rng.Float64()*300e6, nil
	case ControlPowerCap:
		cap, ok := s.powerCapW[idx]
		if !ok {
			cap = 300
		}
		return cap, nil
	case SignalUtil:
		return s.rng.Float64() * 100, nil
	default:
		return 0, fmt.Errorf("gpu: unknown signal %q", name)
	}
}

func (s *state) write(name string, domain topology.Domain, idx int, value float64) error {
	switch name {
	case ControlPowerCap:
		s.powerCapW[idx] = value
		return nil
	default:
		return fmt.Errorf("gpu: unknown control %q", name)
	}
}

// NVML constructs the NVIDIA-management-library-style backend.
func NVML() *provider.Base {
	s := newState(1)
	return &provider.Base{
		ProviderName: "NVML",
		Signals:      signals(),
		Controls:     controls(),
		ReadFn:       s.read,
		WriteFn:      s.write,
	}
}

// DCGM constructs the Data-Center-GPU-Manager-style backend. It supports
// the same alias set as NVML but not the frequency signal, so registry
// fallback to NVML for GPU_CORE_FREQUENCY_STATUS can be exercised.
func DCGM() *provider.Base {
	s := newState(2)
	sig := signals()
	delete(sig, SignalFrequency)
	return &provider.Base{
		ProviderName: "DCGM",
		Signals:      sig,
		Controls:     controls(),
		ReadFn:       s.read,
		WriteFn:      s.write,
	}
}
