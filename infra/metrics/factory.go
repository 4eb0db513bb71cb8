package metrics

import (
	"github.com/kilianp07/drtmdp/core/factory"
	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/infra/mqtt"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})

	// The /metrics endpoint is started from metrics.listen, not from here.
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})

	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c mqtt.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		pub, err := mqtt.NewPublisher(c)
		if err != nil {
			return nil, err
		}
		return mqtt.NewSink(pub), nil
	})
}
