package internal

import (
	"sync"

	"github.com/golang/glog"

	"sketchroom/internal/session"
)

// Hub is the directory of live room actors. A room actor starts with the
// first connection that joins its key and stops once the last connection
// attached to it has gone.
type Hub struct {
	mutex    sync.Mutex
	rooms    map[string]*Room
	stopping map[string]*Room

	registry *session.Registry
	metrics  *Metrics
	audit    *auditWriter
}

func NewHub(registry *session.Registry, metrics *Metrics, audit *auditWriter) *Hub {
	if registry == nil {
		registry = session.NewRegistry(nil)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if audit == nil {
		audit = newAuditWriter(nil)
	}
	return &Hub{
		rooms:    make(map[string]*Room),
		stopping: make(map[string]*Room),
		registry: registry,
		metrics:  metrics,
		audit:    audit,
	}
}

// Exists reports whether a room actor is running for key.
func (hub *Hub) Exists(key string) bool {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	_, ok := hub.rooms[key]
	return ok
}

func (hub *Hub) Len() int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.rooms)
}

// acquire returns the live room for key, starting one if needed, and counts
// the caller as attached until it calls release.
func (hub *Hub) acquire(key string) *Room {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	room, exists := hub.rooms[key]
	if !exists {
		// a stopping actor for the same key must finish before the new one
		// touches the shared session registry
		room = newRoom(key, hub, hub.stopping[key])
		hub.rooms[key] = room
		hub.metrics.IncRoom()
		glog.Infof("[hub] room %s created", key)
		go room.run()
	}
	room.attached += 1
	return room
}

// release detaches one caller from room. The last release stops the actor
// after everything already queued has been handled.
func (hub *Hub) release(room *Room) {
	hub.mutex.Lock()
	room.attached -= 1
	last := room.attached == 0
	if last {
		if hub.rooms[room.key] == room {
			delete(hub.rooms, room.key)
		}
		hub.stopping[room.key] = room
		hub.metrics.DecRoom()
	}
	hub.mutex.Unlock()
	if last {
		room.inbound <- command{kind: cmdStop}
	}
}

// stopped is called by a room actor on its way out.
func (hub *Hub) stopped(room *Room) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if hub.stopping[room.key] == room {
		delete(hub.stopping, room.key)
	}
	glog.Infof("[hub] room %s destroyed", room.key)
}

// lookup returns the live room for key without attaching to it.
func (hub *Hub) lookup(key string) *Room {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return hub.rooms[key]
}
