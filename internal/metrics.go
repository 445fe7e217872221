package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	activeConns atomic.Int64
	activeRooms atomic.Int64
	commits     atomic.Uint64
	broadcasts  atomic.Uint64
	dropped     atomic.Uint64
	throttled   atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) IncRoom() {
	m.activeRooms.Add(1)
}

func (m *Metrics) DecRoom() {
	m.activeRooms.Add(-1)
}

func (m *Metrics) IncCommit() {
	m.commits.Add(1)
}

func (m *Metrics) IncBroadcast() {
	m.broadcasts.Add(1)
}

// IncDropped counts clients cut off for not keeping up with their room.
func (m *Metrics) IncDropped() {
	m.dropped.Add(1)
}

func (m *Metrics) IncThrottled() {
	m.throttled.Add(1)
}

// Snapshot returns the current counter values keyed by their exported names.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"active_connections": m.activeConns.Load(),
		"active_rooms":       m.activeRooms.Load(),
		"commits_total":      m.commits.Load(),
		"broadcasts_total":   m.broadcasts.Load(),
		"dropped_total":      m.dropped.Load(),
		"throttled_total":    m.throttled.Load(),
	}
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
