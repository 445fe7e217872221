// Package protocol defines the JSON event contract spoken over a room
// connection, the rule deciding which edits enter history, and the client-side
// reconciliation of optimistic edits with their confirmed counterparts.
package protocol

import (
	"sketchroom/internal/oplog"
	"sketchroom/internal/session"
)

// Client to server.
const (
	TypeJoin          = "join"
	TypeEdit          = "edit"
	TypeCursor        = "cursor"
	TypeUndoRequest   = "undo-request"
	TypeRedoRequest   = "redo-request"
	TypeAdminUndo     = "admin-undo"
	TypeAdminRedo     = "admin-redo"
	TypeClearMine     = "clear-mine"
	TypeAdminClearAll = "admin-clear-all"
	TypeAdminKick     = "admin-kick"
	TypeAdminTransfer = "admin-transfer"
	TypeSetTheme      = "set-theme"
	TypeShapePreview  = string(oplog.TypeShapePreview)
	TypeTextPreview   = string(oplog.TypeTextPreview)
	TypeMovePreview   = string(oplog.TypeMovePreview)
)

// Server to client.
const (
	TypeWelcome       = "welcome"
	TypeUsers         = "users"
	TypeAdminGranted  = "admin-granted"
	TypeOperation     = "operation"
	TypeStrokeSegment = "stroke-segment"
	TypePositional    = "positional"
	TypeUndoUpdate    = "undo-update"
	TypeCleared       = "cleared"
	TypeClearedAll    = "cleared-all"
	TypeUserLeft      = "user-left"
	TypeKicked        = "kicked"
	TypeTheme         = "theme"
	TypeError         = "error"
)

// PhaseEnd withdraws a preview.
const PhaseEnd = "end"

// Error codes carried by TypeError.
const (
	CodeForbidden   = "forbidden"
	CodeRateLimited = "rate-limited"
)

// IsPreview reports whether eventType is one of the relayed preview events.
func IsPreview(eventType string) bool {
	switch eventType {
	case TypeShapePreview, TypeTextPreview, TypeMovePreview:
		return true
	}
	return false
}

type JoinRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// EditRequest carries an edit. Data may hold a "tempId" correlation token
// and, for incremental strokes, a boolean "final".
type EditRequest struct {
	Kind oplog.Type     `json:"kind"`
	Data map[string]any `json:"data"`
}

type CursorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TargetRequest struct {
	UserID string `json:"userId"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type PreviewRequest struct {
	Phase string         `json:"phase,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type Welcome struct {
	Self       *session.User     `json:"self"`
	RoomID     string            `json:"roomId"`
	Users      []*session.User   `json:"users"`
	Operations []oplog.Operation `json:"operations"`
	Theme      string            `json:"theme,omitempty"`
}

type Users struct {
	Users []*session.User `json:"users"`
}

type AdminGranted struct {
	User *session.User `json:"user"`
}

// Committed is the broadcast of a newly committed operation. TempID echoes
// the author's correlation token and is absent from the stored entry.
type Committed struct {
	Operation oplog.Operation `json:"operation"`
	TempID    string          `json:"tempId,omitempty"`
}

type StrokeSegment struct {
	AuthorID string         `json:"authorId"`
	Color    string         `json:"color"`
	TempID   string         `json:"tempId,omitempty"`
	Data     map[string]any `json:"data"`
}

type Positional struct {
	TargetID string         `json:"targetId"`
	Kind     oplog.Type     `json:"kind"`
	Fields   map[string]any `json:"fields"`
	By       string         `json:"by"`
}

type UndoUpdate struct {
	OperationID string `json:"operationId"`
	Undone      bool   `json:"undone"`
	By          string `json:"by"`
}

type Cleared struct {
	UserID       string   `json:"userId"`
	OperationIDs []string `json:"operationIds"`
}

type ClearedAll struct {
	By string `json:"by"`
}

type Cursor struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type Preview struct {
	UserID string         `json:"userId"`
	Color  string         `json:"color"`
	Phase  string         `json:"phase,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

type Kicked struct {
	By string `json:"by"`
}

type Theme struct {
	Theme string `json:"theme"`
	By    string `json:"by"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
