package sink

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zllovesuki/subpulse/spec"

	extErrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var _ spec.Sink = &Prometheus{}

// PrometheusOptions contains the configuration for the Prometheus sink
type PrometheusOptions struct {
	Registerer prometheus.Registerer
	Namespace  string // Defaults to "subpulse"
}

// Prometheus exposes every metric as one gauge labelled by metric name.
// Scalars have an empty bucket label, series use the bucket index, oldest first.
type Prometheus struct {
	PrometheusOptions
	gauge   *prometheus.GaugeVec
	updated prometheus.Gauge
}

// NewPrometheus registers the gauges on the Registerer
func NewPrometheus(option PrometheusOptions) (*Prometheus, error) {
	if option.Registerer == nil {
		return nil, fmt.Errorf("nil Registerer is invalid")
	}
	if option.Namespace == "" {
		option.Namespace = "subpulse"
	}
	p := &Prometheus{
		PrometheusOptions: option,
		gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: option.Namespace,
			Name:      "subscription_metric",
			Help:      "Subscription count or MRR (minor currency units per month) of a report window",
		}, []string{"name", "bucket"}),
		updated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: option.Namespace,
			Name:      "report_timestamp_seconds",
			Help:      "Evaluation time of the last emitted report",
		}),
	}
	if err := option.Registerer.Register(p.gauge); err != nil {
		return nil, extErrors.Wrap(err, "Cannot register subscription gauge")
	}
	if err := option.Registerer.Register(p.updated); err != nil {
		return nil, extErrors.Wrap(err, "Cannot register timestamp gauge")
	}
	return p, nil
}

func (p *Prometheus) Set(name string, value float64, at time.Time) {
	p.gauge.WithLabelValues(name, "").Set(value)
	p.updated.Set(float64(at.Unix()))
}

func (p *Prometheus) SetSeries(name string, values []float64, at time.Time) {
	for i, v := range values {
		p.gauge.WithLabelValues(name, strconv.Itoa(i)).Set(v)
	}
	p.updated.Set(float64(at.Unix()))
}
