package sink

import (
	"time"

	"github.com/zllovesuki/subpulse/spec"
)

var _ spec.Sink = Multi{}

// Multi forwards every metric to each sink in order
type Multi []spec.Sink

func (m Multi) Set(name string, value float64, at time.Time) {
	for _, s := range m {
		s.Set(name, value, at)
	}
}

func (m Multi) SetSeries(name string, values []float64, at time.Time) {
	for _, s := range m {
		s.SetSeries(name, values, at)
	}
}
