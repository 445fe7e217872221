package internal

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sketchroom/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client wraps a single websocket connection and a buffered send queue.
type Client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	// room is set by the read pump on join and only read there.
	room       *Room
	lastNotice time.Time

	// closed is owned by the room actor once the client has joined.
	closed bool
}

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		server: server,
		conn:   conn,
		send:   make(chan []byte, server.sendBuffer),
	}
}

func (client *Client) readPump() {
	defer func() {
		if client.room != nil {
			client.room.submit(command{kind: cmdLeave, client: client})
			client.server.hub.release(client.room)
		} else {
			close(client.send)
		}
		client.conn.Close()
		client.server.limiter.Forget(client.id)
		client.server.metrics.DecConn()
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, frame, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.V(1).Infof("[ws] %s: read: %v", client.id, err)
			}
			break
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			glog.V(1).Infof("[ws] %s: %v", client.id, err)
			continue
		}
		if !client.server.limiter.Allow(client.id) {
			client.throttled()
			continue
		}

		if env.Type == protocol.TypeJoin {
			client.join(env)
			continue
		}
		if client.room == nil {
			glog.V(1).Infof("[ws] %s: %s before join dropped", client.id, env.Type)
			continue
		}
		client.room.submit(command{kind: cmdFrame, client: client, env: env})
	}
}

// join attaches the connection to its room. A connection joins at most once.
func (client *Client) join(env protocol.Envelope) {
	if client.room != nil {
		glog.V(1).Infof("[ws] %s: second join dropped", client.id)
		return
	}
	var req protocol.JoinRequest
	if err := env.Bind(&req); err != nil {
		glog.V(1).Infof("[ws] %s: %v", client.id, err)
		return
	}
	if req.RoomID == "" {
		glog.V(1).Infof("[ws] %s: join without room dropped", client.id)
		return
	}
	client.room = client.server.hub.acquire(req.RoomID)
	client.room.submit(command{kind: cmdJoin, client: client, join: req})
}

// throttled drops the current frame and, at most once per window, asks the
// room to tell the sender.
func (client *Client) throttled() {
	client.server.metrics.IncThrottled()
	now := time.Now()
	if client.room == nil || now.Sub(client.lastNotice) < client.server.limiter.Window() {
		return
	}
	client.lastNotice = now
	client.room.submit(command{kind: cmdThrottled, client: client})
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
