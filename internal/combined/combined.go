// Package combined implements cross-domain signal aggregation and control
// disaggregation: Signal reduces a vector of sub-signal samples with an
// aggregation function, and Control scales one coarse setting down to the
// per-sub-control value each nested domain instance receives. The
// orchestrator constructs these when a push asks for a domain that isn't
// any provider's native domain.
package combined

import (
	"fmt"

	"github.com/geopm-project/platformio-go/internal/provider"
)

// Signal aggregates a fixed set of sub-signal samples into a single
// scalar with an aggregation function, used to satisfy a push_signal
// request at a domain wider than the underlying provider's native
// domain.
type Signal struct {
	agg provider.AggKind
}

// NewSignal constructs a Signal using agg to reduce operand samples.
func NewSignal(agg provider.AggKind) *Signal {
	return &Signal{agg: agg}
}

// Sample reduces operands, which the caller has already gathered by
// sampling each sub-signal handle, into the combined scalar.
func (s *Signal) Sample(operands []float64) float64 {
	return s.agg.Aggregate(operands)
}

// Control disaggregates one coarse Adjust call into the per-sub-control
// setting each nested control receives. Controls whose aggregation hint
// is AggSum (e.g. a power budget) divide the setting evenly across the
// sub-controls; every other control fans the setting out unscaled.
type Control struct {
	factor  float64
	numSubs int
}

// NewControl builds a Control for numSubs sub-controls. adjustSame should
// be true when setting the same absolute value on every sub-control is
// correct (e.g. a shared frequency cap); false divides the setting evenly
// (e.g. a power budget split across packages).
func NewControl(numSubs int, adjustSame bool) (*Control, error) {
	if numSubs <= 0 {
		return nil, fmt.Errorf("combined: control requires at least one sub-control, got %d", numSubs)
	}
	factor := 1.0
	if !adjustSame {
		factor = 1.0 / float64(numSubs)
	}
	return &Control{factor: factor, numSubs: numSubs}, nil
}

// Adjust returns the per-sub-control value to stage on every sub-control
// for a coarse-domain setting.
func (c *Control) Adjust(setting float64) float64 {
	return c.factor * setting
}

// NumSubControls reports how many sub-control handles this combiner fans
// out to.
func (c *Control) NumSubControls() int { return c.numSubs }
