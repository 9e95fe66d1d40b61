package sink

import (
	"sync"
	"time"

	"github.com/zllovesuki/subpulse/spec"
)

var _ spec.Sink = &Memory{}

// Point is the last value written under a metric name
type Point struct {
	Values []float64 `json:"values"`
	Series bool      `json:"series"`
	At     time.Time `json:"at"`
}

// Memory keeps the last point of every metric
type Memory struct {
	mu     sync.RWMutex
	points map[string]Point
	order  []string
}

func NewMemory() *Memory {
	return &Memory{
		points: make(map[string]Point),
	}
}

func (m *Memory) put(name string, p Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.points[name]; !ok {
		m.order = append(m.order, name)
	}
	m.points[name] = p
}

func (m *Memory) Set(name string, value float64, at time.Time) {
	m.put(name, Point{Values: []float64{value}, At: at})
}

func (m *Memory) SetSeries(name string, values []float64, at time.Time) {
	copied := make([]float64, len(values))
	copy(copied, values)
	m.put(name, Point{Values: copied, Series: true, At: at})
}

// Value returns the scalar written under name
func (m *Memory) Value(name string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[name]
	if !ok || p.Series || len(p.Values) == 0 {
		return 0, false
	}
	return p.Values[0], true
}

// Series returns the series written under name
func (m *Memory) Series(name string) ([]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[name]
	if !ok || !p.Series {
		return nil, false
	}
	return p.Values, true
}

// Names lists metric names in first write order
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}
