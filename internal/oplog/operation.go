package oplog

import (
	"strings"
	"time"
)

// Type names the kind of edit an operation carries.
type Type string

const (
	TypeDraw            Type = "draw"
	TypeDrawIncremental Type = "draw-incremental"
	TypeShape           Type = "shape"
	TypeText            Type = "text"
	TypeImage           Type = "image"
	TypeMove            Type = "move"
	TypeResize          Type = "resize"
	TypeClear           Type = "clear"

	TypeShapePreview Type = "shape-preview"
	TypeTextPreview  Type = "text-preview"
	TypeMovePreview  Type = "move-preview"
)

// Durable reports whether edits of this type are always committed to history.
func (t Type) Durable() bool {
	switch t {
	case TypeDraw, TypeShape, TypeText, TypeImage:
		return true
	}
	return false
}

// Positional reports whether the type mutates an existing entry instead of
// creating one.
func (t Type) Positional() bool {
	return t == TypeMove || t == TypeResize
}

// Preview reports whether the type is a transient, never-committed preview.
func (t Type) Preview() bool {
	return strings.HasSuffix(string(t), "-preview")
}

// Operation is one committed, replayable edit in a room's history.
type Operation struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	AuthorID    string         `json:"authorId"`
	AuthorColor string         `json:"authorColor"`
	CreatedAt   time.Time      `json:"createdAt"`
	Payload     map[string]any `json:"payload"`
	Undone      bool           `json:"undone"`
}

// Draft is the caller-supplied part of an operation before commit.
type Draft struct {
	Type        Type
	AuthorID    string
	AuthorColor string
	Payload     map[string]any
}

// Clone copies the operation and its top-level payload map. Nested payload
// values are shared; nothing in this package mutates them.
func (op Operation) Clone() Operation {
	op.Payload = copyPayload(op.Payload)
	return op
}

var positionalFields = map[Type][]string{
	TypeMove:   {"x", "y"},
	TypeResize: {"x", "y", "width", "height"},
}

// PositionalFields filters fields down to the names a move or resize may
// overwrite. It returns nil for other types or when nothing applies.
func PositionalFields(kind Type, fields map[string]any) map[string]any {
	names, ok := positionalFields[kind]
	if !ok {
		return nil
	}
	var applied map[string]any
	for _, name := range names {
		value, present := fields[name]
		if !present {
			continue
		}
		if applied == nil {
			applied = make(map[string]any, len(names))
		}
		applied[name] = value
	}
	return applied
}

// ApplyFields overwrites the positional fields of payload in place and
// reports whether anything changed.
func ApplyFields(payload map[string]any, kind Type, fields map[string]any) bool {
	applied := PositionalFields(kind, fields)
	if len(applied) == 0 || payload == nil {
		return false
	}
	for name, value := range applied {
		payload[name] = value
	}
	return true
}

func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}
