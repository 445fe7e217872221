package internal

import (
	"time"

	"github.com/golang/glog"

	"sketchroom/internal/oplog"
	"sketchroom/internal/protocol"
	"sketchroom/internal/session"
	"sketchroom/internal/storage"
)

const inboundBuffer = 256

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdFrame
	cmdLeave
	cmdThrottled
	cmdInspect
	cmdStop
)

// command is one unit of work for a room actor.
type command struct {
	kind    commandKind
	client  *Client
	join    protocol.JoinRequest
	env     protocol.Envelope
	inspect func(*Room)
}

// Room is the actor for one board. Its goroutine is the only code that reads
// or writes the room's members, operation log, previews and session entry,
// so none of them are locked.
type Room struct {
	key      string
	hub      *Hub
	inbound  chan command
	done     chan struct{}
	prev     *Room
	attached int // guarded by hub.mutex

	members  map[*Client]*session.User
	log      *oplog.Log
	previews *previewTracker
}

func newRoom(key string, hub *Hub, prev *Room) *Room {
	return &Room{
		key:      key,
		hub:      hub,
		inbound:  make(chan command, inboundBuffer),
		done:     make(chan struct{}),
		prev:     prev,
		members:  make(map[*Client]*session.User),
		log:      oplog.New(),
		previews: newPreviewTracker(),
	}
}

func (room *Room) run() {
	defer func() {
		close(room.done)
		room.hub.stopped(room)
	}()
	if room.prev != nil {
		<-room.prev.done
		room.prev = nil
	}
	for {
		cmd := <-room.inbound
		switch cmd.kind {
		case cmdJoin:
			room.join(cmd.client, cmd.join)
		case cmdFrame:
			room.dispatch(cmd.client, cmd.env)
		case cmdLeave:
			room.leave(cmd.client)
		case cmdThrottled:
			if _, ok := room.members[cmd.client]; ok {
				room.unicast(cmd.client, protocol.TypeError, protocol.Error{
					Code:    protocol.CodeRateLimited,
					Message: "You're sending events too quickly. Please slow down.",
				})
			}
		case cmdInspect:
			cmd.inspect(room)
		case cmdStop:
			return
		}
	}
}

// submit hands cmd to the actor. It reports false once the actor is gone.
func (room *Room) submit(cmd command) bool {
	select {
	case room.inbound <- cmd:
		return true
	case <-room.done:
		return false
	}
}

func (room *Room) session() *session.Room {
	return room.hub.registry.Room(room.key)
}

func (room *Room) join(client *Client, req protocol.JoinRequest) {
	if client.closed {
		return
	}
	if _, joined := room.members[client]; joined {
		return
	}
	user := room.hub.registry.Join(room.key, req.Name)
	if user == nil {
		return
	}
	user.Conn = client
	room.members[client] = user
	glog.Infof("[room] %s: %s joined as %q (admin=%t)", room.key, user.ID, user.Name, user.IsAdmin)

	current := room.session()
	room.unicast(client, protocol.TypeWelcome, protocol.Welcome{
		Self:       user,
		RoomID:     room.key,
		Users:      current.Users(),
		Operations: room.log.Snapshot(),
		Theme:      current.Theme,
	})
	room.broadcastUsers()
}

// leave handles a connection going away.
func (room *Room) leave(client *Client) {
	room.depart(client)
	room.disconnect(client)
}

// depart removes client's user from the room and tells everyone who is left.
func (room *Room) depart(client *Client) {
	user, ok := room.members[client]
	if !ok {
		return
	}
	delete(room.members, client)
	_, promoted := room.hub.registry.Leave(room.key, user.ID)
	glog.Infof("[room] %s: %s left", room.key, user.ID)

	for _, eventType := range room.previews.Withdraw(user.ID) {
		room.broadcast(eventType, protocol.Preview{UserID: user.ID, Color: user.Color, Phase: protocol.PhaseEnd})
	}
	room.broadcast(protocol.TypeUserLeft, protocol.UserLeft{UserID: user.ID})
	if promoted != nil {
		glog.Infof("[room] %s: %s promoted to admin", room.key, promoted.ID)
		room.sendTo(promoted, protocol.TypeAdminGranted, protocol.AdminGranted{User: promoted})
		room.hub.audit.record(room.key, user.ID, storage.ActionSuccession, promoted.ID)
	}

	if room.session() == nil {
		// the board is discarded with its last member
		room.log = oplog.New()
		room.previews = newPreviewTracker()
		glog.Infof("[room] %s: emptied, history discarded", room.key)
		return
	}
	room.broadcastUsers()
}

// disconnect closes client's outbound queue, which makes its write pump hang
// up. Only the actor closes a joined client's queue.
func (room *Room) disconnect(client *Client) {
	if client == nil || client.closed {
		return
	}
	client.closed = true
	close(client.send)
}

func (room *Room) broadcastUsers() {
	room.broadcast(protocol.TypeUsers, protocol.Users{Users: room.hub.registry.ListUsers(room.key)})
}

// broadcast encodes the event once and queues it for every member, the
// originator included. Members whose queue is full are cut off.
func (room *Room) broadcast(eventType string, payload any) {
	frame, err := protocol.Encode(eventType, payload)
	if err != nil {
		glog.Errorf("[room] %s: %v", room.key, err)
		return
	}
	room.hub.metrics.IncBroadcast()
	var slow []*Client
	for client := range room.members {
		if !room.deliver(client, frame) {
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		room.depart(client)
	}
}

func (room *Room) unicast(client *Client, eventType string, payload any) {
	frame, err := protocol.Encode(eventType, payload)
	if err != nil {
		glog.Errorf("[room] %s: %v", room.key, err)
		return
	}
	if !room.deliver(client, frame) {
		room.depart(client)
	}
}

func (room *Room) sendTo(user *session.User, eventType string, payload any) {
	if client, ok := user.Conn.(*Client); ok {
		room.unicast(client, eventType, payload)
	}
}

func (room *Room) deliver(client *Client, frame []byte) bool {
	if client.closed {
		return true
	}
	select {
	case client.send <- frame:
		return true
	default:
		glog.Warningf("[room] %s: dropping slow client %s", room.key, client.id)
		room.hub.metrics.IncDropped()
		room.disconnect(client)
		return false
	}
}

// RoomInfo is a read-only view of a live room.
type RoomInfo struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"createdAt"`
	Theme      string            `json:"theme,omitempty"`
	Users      []*session.User   `json:"users"`
	Operations []oplog.Operation `json:"operations"`
}

func (room *Room) info() (RoomInfo, bool) {
	current := room.session()
	if current == nil {
		return RoomInfo{}, false
	}
	users := []*session.User{}
	for _, user := range current.Users() {
		copied := *user
		copied.Conn = nil
		users = append(users, &copied)
	}
	return RoomInfo{
		ID:         room.key,
		CreatedAt:  current.CreatedAt,
		Theme:      current.Theme,
		Users:      users,
		Operations: room.log.Snapshot(),
	}, true
}

// Inspect asks the actor for key for a consistent view of its room.
func (hub *Hub) Inspect(key string) (RoomInfo, bool) {
	room := hub.lookup(key)
	if room == nil {
		return RoomInfo{}, false
	}
	type result struct {
		info RoomInfo
		ok   bool
	}
	reply := make(chan result, 1)
	queued := room.submit(command{kind: cmdInspect, inspect: func(r *Room) {
		info, ok := r.info()
		reply <- result{info, ok}
	}})
	if !queued {
		return RoomInfo{}, false
	}
	select {
	case res := <-reply:
		return res.info, res.ok
	case <-room.done:
		return RoomInfo{}, false
	}
}
