package observability

import (
	"sync/atomic"
)

// Stats is a point-in-time copy of the relay counters.
type Stats struct {
	Connections       int64
	Broadcasts        uint64
	GeneratorCalls    uint64
	GeneratorFailures uint64
}

// Monitoring aggregates live counters for operability. All counters are
// atomic; the struct is shared between the gateway, the presence engine,
// and the health worker.
type Monitoring struct {
	connections       atomic.Int64
	broadcasts        atomic.Uint64
	generatorCalls    atomic.Uint64
	generatorFailures atomic.Uint64
}

func NewMonitoring() *Monitoring {
	return &Monitoring{}
}

func (m *Monitoring) IncrConnections() {
	m.connections.Add(1)
}

func (m *Monitoring) DecrConnections() {
	m.connections.Add(-1)
}

func (m *Monitoring) IncrBroadcasts() {
	m.broadcasts.Add(1)
}

func (m *Monitoring) IncrGeneratorCalls() {
	m.generatorCalls.Add(1)
}

func (m *Monitoring) IncrGeneratorFailures() {
	m.generatorFailures.Add(1)
}

func (m *Monitoring) Snapshot() Stats {
	return Stats{
		Connections:       m.connections.Load(),
		Broadcasts:        m.broadcasts.Load(),
		GeneratorCalls:    m.generatorCalls.Load(),
		GeneratorFailures: m.generatorFailures.Load(),
	}
}
