package spec

import "time"

// Sink receives scalar and series metrics. Delivery failures are the sink's own concern.
type Sink interface {
	Set(name string, value float64, at time.Time)
	SetSeries(name string, values []float64, at time.Time)
}
