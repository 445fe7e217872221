// Package session tracks who is in each room and which of them is admin.
//
// The Registry's room directory is safe for concurrent use. Everything inside
// a single Room must only be touched by that room's own handler goroutine.
package session

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxNameRunes = 32

// User is one connected participant.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`

	// Conn is the transport handle; the session layer never looks inside it.
	Conn any `json:"-"`
}

// Room is the membership of one isolated board.
type Room struct {
	ID        string
	CreatedAt time.Time
	Theme     string

	users []*User
	admin *User
}

// Users returns members in join order.
func (r *Room) Users() []*User {
	out := make([]*User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *Room) Admin() *User {
	return r.admin
}

func (r *Room) User(userID string) *User {
	for _, user := range r.users {
		if user.ID == userID {
			return user
		}
	}
	return nil
}

func (r *Room) Len() int {
	return len(r.users)
}

func (r *Room) remove(userID string) *User {
	for i, user := range r.users {
		if user.ID == userID {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return user
		}
	}
	return nil
}

// Transfer describes an admin handover.
type Transfer struct {
	Old *User
	New *User
}

// Registry owns the set of live rooms.
type Registry struct {
	mutex   sync.RWMutex
	rooms   map[string]*Room
	palette *Palette
	now     func() time.Time
	newID   func() string
}

func NewRegistry(palette *Palette) *Registry {
	if palette == nil {
		palette = NewPalette(nil)
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		palette: palette,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Room returns the live room or nil.
func (reg *Registry) Room(roomID string) *Room {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return reg.rooms[roomID]
}

// User returns a member of a live room or nil.
func (reg *Registry) User(roomID, userID string) *User {
	room := reg.Room(roomID)
	if room == nil {
		return nil
	}
	return room.User(userID)
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return len(reg.rooms)
}

// Join adds a user to roomID, creating the room if needed. The first user of
// an empty room becomes admin. An empty room id yields nil.
func (reg *Registry) Join(roomID, name string) *User {
	if roomID == "" {
		return nil
	}
	reg.mutex.Lock()
	room, ok := reg.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, CreatedAt: reg.now().UTC()}
		reg.rooms[roomID] = room
	}
	reg.mutex.Unlock()

	user := &User{
		ID:       reg.newID(),
		Name:     cleanName(name),
		Color:    reg.palette.Assign(room),
		JoinedAt: reg.now().UTC(),
	}
	if len(room.users) == 0 {
		user.IsAdmin = true
		room.admin = user
	}
	room.users = append(room.users, user)
	return user
}

// Leave removes a user. When the admin leaves a non-empty room, the member
// who joined earliest among those remaining is promoted and returned as the
// second value. An emptied room is discarded.
func (reg *Registry) Leave(roomID, userID string) (removed *User, promoted *User) {
	room := reg.Room(roomID)
	if room == nil {
		return nil, nil
	}
	removed = room.remove(userID)
	if removed == nil {
		return nil, nil
	}
	wasAdmin := removed.IsAdmin
	removed.IsAdmin = false

	if len(room.users) == 0 {
		room.admin = nil
		reg.mutex.Lock()
		if reg.rooms[roomID] == room {
			delete(reg.rooms, roomID)
		}
		reg.mutex.Unlock()
		return removed, nil
	}
	if wasAdmin {
		promoted = room.users[0]
		promoted.IsAdmin = true
		room.admin = promoted
	}
	return removed, promoted
}

// TransferAdmin hands admin from fromID to toID. It returns nil unless fromID
// is the current admin and toID is another member.
func (reg *Registry) TransferAdmin(roomID, fromID, toID string) *Transfer {
	room := reg.Room(roomID)
	if room == nil || room.admin == nil || room.admin.ID != fromID || fromID == toID {
		return nil
	}
	target := room.User(toID)
	if target == nil {
		return nil
	}
	old := room.admin
	old.IsAdmin = false
	target.IsAdmin = true
	room.admin = target
	return &Transfer{Old: old, New: target}
}

// ListUsers returns the members of roomID in join order.
func (reg *Registry) ListUsers(roomID string) []*User {
	room := reg.Room(roomID)
	if room == nil {
		return []*User{}
	}
	return room.Users()
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "anonymous"
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}
