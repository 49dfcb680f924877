package metrics

import "github.com/groupmix/groupmix/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	// Sinks lists the sink modules to instantiate, by type name.
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, exposes a /metrics endpoint on the address.
	PrometheusAddr string `json:"prometheus_addr"`
}

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a metrics sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Sink from the provided configuration. With no sinks
// configured a NopSink is returned; with several, records fan out to all.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
