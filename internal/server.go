package internal

import (
	"net/http"
	"time"

	"github.com/golang/glog"

	"sketchroom/internal/session"
)

const (
	defaultSendBuffer = 256
	defaultRateLimit  = 60
	defaultRateWindow = time.Second
)

// Options tunes a Server. Zero values fall back to defaults; a nil Journal
// disables the admin audit trail.
type Options struct {
	Journal    AdminJournal
	Palette    *session.Palette
	RateLimit  int
	RateWindow time.Duration
	SendBuffer int
}

// Server ties the room hub to the websocket and HTTP surface.
type Server struct {
	hub        *Hub
	registry   *session.Registry
	metrics    *Metrics
	limiter    *RateLimiter
	audit      *auditWriter
	sendBuffer int
}

func NewServer(opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}
	registry := session.NewRegistry(opts.Palette)
	metrics := NewMetrics()
	audit := newAuditWriter(opts.Journal)
	return &Server{
		hub:        NewHub(registry, metrics, audit),
		registry:   registry,
		metrics:    metrics,
		limiter:    NewRateLimiter(opts.RateLimit, opts.RateWindow),
		audit:      audit,
		sendBuffer: opts.SendBuffer,
	}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ServeWS upgrades the request and starts the connection pumps. The first
// frame on the socket has to be a join.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("[ws] upgrade: %v", err)
		return
	}
	client := newClient(s, conn)
	s.metrics.IncConn()
	glog.V(1).Infof("[ws] %s connected from %s", client.id, r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// Close flushes the audit trail. Call it after the HTTP server has stopped.
func (s *Server) Close() {
	s.audit.close()
}
