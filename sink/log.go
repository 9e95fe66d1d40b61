package sink

import (
	"time"

	"github.com/zllovesuki/subpulse/spec"

	"go.uber.org/zap"
)

var _ spec.Sink = &Log{}

// Log writes every metric as a structured log line
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{
		logger: logger.Named("metrics"),
	}
}

func (l *Log) Set(name string, value float64, at time.Time) {
	l.logger.Info("Metric",
		zap.String("Name", name),
		zap.Float64("Value", value),
		zap.Time("At", at),
	)
}

func (l *Log) SetSeries(name string, values []float64, at time.Time) {
	l.logger.Info("Metric",
		zap.String("Name", name),
		zap.Float64s("Values", values),
		zap.Time("At", at),
	)
}
