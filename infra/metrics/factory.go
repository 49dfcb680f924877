// Package metrics implements the evaluation metrics sinks: Prometheus,
// InfluxDB and the factory wiring that builds them from configuration.
package metrics

import (
	"sync"

	"github.com/groupmix/groupmix/core/factory"
	"github.com/groupmix/groupmix/core/logger"
	coremetrics "github.com/groupmix/groupmix/core/metrics"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterBuiltinSinks registers the sink factories shipped with this
// module: "prometheus", "influx" and "nop". Safe to call more than once.
func RegisterBuiltinSinks() error {
	registerOnce.Do(func() { registerErr = registerBuiltinSinks() })
	return registerErr
}

func registerBuiltinSinks() error {
	if err := coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		return NewPromSink(nil)
	}); err != nil {
		return err
	}
	if err := coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var cfg InfluxConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(cfg, logger.Nop{}), nil
	}); err != nil {
		return err
	}
	return coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})
}
