package sink

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var at = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func TestPrometheus(t *testing.T) {
	registry := prometheus.NewRegistry()
	p, err := NewPrometheus(PrometheusOptions{Registerer: registry})
	require.NoError(t, err)

	p.Set("active subscriptions", 3, at)
	p.SetSeries("active new subscriptions for the last week", []float64{0, 2, 1}, at)

	assert.Equal(t, 3.0, testutil.ToFloat64(p.gauge.WithLabelValues("active subscriptions", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.gauge.WithLabelValues("active new subscriptions for the last week", "1")))
	assert.Equal(t, 4, testutil.CollectAndCount(p.gauge))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(p.updated))

	expected := `
# HELP subpulse_subscription_metric Subscription count or MRR (minor currency units per month) of a report window
# TYPE subpulse_subscription_metric gauge
subpulse_subscription_metric{bucket="",name="active subscriptions"} 3
`
	assert.NoError(t, testutil.CollectAndCompare(p.gauge, strings.NewReader(expected+
		`subpulse_subscription_metric{bucket="0",name="active new subscriptions for the last week"} 0
subpulse_subscription_metric{bucket="1",name="active new subscriptions for the last week"} 2
subpulse_subscription_metric{bucket="2",name="active new subscriptions for the last week"} 1
`), "subpulse_subscription_metric"))

	// registering twice on the same registry collides
	_, err = NewPrometheus(PrometheusOptions{Registerer: registry})
	assert.Error(t, err)

	_, err = NewPrometheus(PrometheusOptions{})
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Set("active MRR", 6700, at)
	series := []float64{1, 2}
	m.SetSeries("active new MRR this year", series, at)
	series[0] = 99

	v, ok := m.Value("active MRR")
	assert.True(t, ok)
	assert.Equal(t, 6700.0, v)

	s, ok := m.Series("active new MRR this year")
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2}, s)

	_, ok = m.Value("active new MRR this year")
	assert.False(t, ok)
	_, ok = m.Series("active MRR")
	assert.False(t, ok)

	m.Set("active MRR", 7000, at)
	assert.Equal(t, []string{"active MRR", "active new MRR this year"}, m.Names())
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLog(zap.New(core))

	l.Set("active subscriptions", 3, at)
	l.SetSeries("active new subscriptions this year", []float64{1, 2}, at)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "metrics", entries[0].LoggerName)
	assert.Equal(t, "active subscriptions", entries[0].ContextMap()["Name"])
	assert.Equal(t, 3.0, entries[0].ContextMap()["Value"])
	assert.Equal(t, "active new subscriptions this year", entries[1].ContextMap()["Name"])
}

func TestMulti(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	m := Multi{a, b}

	m.Set("active subscriptions", 3, at)
	m.SetSeries("active new subscriptions this year", []float64{1, 2}, at)

	for _, mem := range []*Memory{a, b} {
		v, ok := mem.Value("active subscriptions")
		assert.True(t, ok)
		assert.Equal(t, 3.0, v)
		s, ok := mem.Series("active new subscriptions this year")
		assert.True(t, ok)
		assert.Equal(t, []float64{1, 2}, s)
	}
}
