package orchestrator

import (
	"github.com/geopm-project/platformio-go/internal/ioerr"
	"github.com/geopm-project/platformio-go/internal/provider"
)

// metaFor returns the metadata of the highest-priority provider declaring
// name, checking signals first and falling back to controls, since
// AggregatorOf/FormatterOf/BehaviorOf accept signal and control names
// alike.
func (o *Orchestrator) metaFor(op, name string) (provider.Meta, error) {
	if candidates := o.reg.FindSignalProviders(name); len(candidates) > 0 {
		meta, _ := candidates[0].SignalMeta(name)
		return meta, nil
	}
	if candidates := o.reg.FindControlProviders(name); len(candidates) > 0 {
		meta, _ := candidates[0].ControlMeta(name)
		return meta, nil
	}
	return provider.Meta{}, ioerr.New(ioerr.KindUnknownName, op, "no provider declares this name").WithName(name)
}

// AggregatorOf returns name's aggregation function.
func (o *Orchestrator) AggregatorOf(name string) (func([]float64) float64, error) {
	meta, err := o.metaFor("aggregator_of", name)
	if err != nil {
		return nil, err
	}
	agg := meta.Aggregation
	return func(values []float64) float64 { return agg.Aggregate(values) }, nil
}

// FormatterOf returns name's format function, defaulting to
// provider.DefaultFormat when the declaring provider leaves Format nil.
func (o *Orchestrator) FormatterOf(name string) (func(float64) string, error) {
	meta, err := o.metaFor("formatter_of", name)
	if err != nil {
		return nil, err
	}
	if meta.Format != nil {
		return meta.Format, nil
	}
	return provider.DefaultFormat, nil
}

// DescribeSignal returns the description of the highest-priority provider
// declaring signal name.
func (o *Orchestrator) DescribeSignal(name string) (string, error) {
	candidates := o.reg.FindSignalProviders(name)
	if len(candidates) == 0 {
		return "", ioerr.New(ioerr.KindUnknownName, "describe_signal", "no provider declares this signal").WithName(name)
	}
	meta, _ := candidates[0].SignalMeta(name)
	return meta.Description, nil
}

// DescribeControl returns the description of the highest-priority
// provider declaring control name.
func (o *Orchestrator) DescribeControl(name string) (string, error) {
	candidates := o.reg.FindControlProviders(name)
	if len(candidates) == 0 {
		return "", ioerr.New(ioerr.KindUnknownName, "describe_control", "no provider declares this control").WithName(name)
	}
	meta, _ := candidates[0].ControlMeta(name)
	return meta.Description, nil
}

// BehaviorOf returns name's behavior class.
func (o *Orchestrator) BehaviorOf(name string) (provider.Behavior, error) {
	meta, err := o.metaFor("behavior_of", name)
	if err != nil {
		return provider.BehaviorVariable, err
	}
	return meta.Behavior, nil
}
