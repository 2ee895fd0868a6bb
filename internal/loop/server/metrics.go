package server

import (
	"sync/atomic"
	"time"
)

// Metrics counts server activity. All methods are safe for concurrent use.
type Metrics struct {
	ticks              atomic.Int64
	totalTickNs        atomic.Int64
	connsAccepted      atomic.Int64
	handshakes         atomic.Int64
	commandsApplied    atomic.Int64
	unknownCommands    atomic.Int64
	sendsDropped       atomic.Int64
	connectionsDropped atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Ticks              int64   `json:"ticks"`
	AvgTickMs          float64 `json:"avg_tick_ms"`
	ConnsAccepted      int64   `json:"connections_accepted"`
	Handshakes         int64   `json:"handshakes"`
	CommandsApplied    int64   `json:"commands_applied"`
	UnknownCommands    int64   `json:"unknown_commands_ignored"`
	SendsDropped       int64   `json:"sends_dropped"`
	ConnectionsDropped int64   `json:"connections_dropped"`
}

func (m *Metrics) addTick(d time.Duration) {
	m.ticks.Add(1)
	m.totalTickNs.Add(d.Nanoseconds())
}

// Snapshot returns a read-only copy for reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	ticks := m.ticks.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(m.totalTickNs.Load()) / float64(ticks) / 1e6
	}
	return MetricsSnapshot{
		Ticks:              ticks,
		AvgTickMs:          avgMs,
		ConnsAccepted:      m.connsAccepted.Load(),
		Handshakes:         m.handshakes.Load(),
		CommandsApplied:    m.commandsApplied.Load(),
		UnknownCommands:    m.unknownCommands.Load(),
		SendsDropped:       m.sendsDropped.Load(),
		ConnectionsDropped: m.connectionsDropped.Load(),
	}
}
