// Package oplog holds a room's ordered history of committed drawing
// operations and the undo/redo policy applied to it.
//
// Undo always targets the most recently committed active entry, while redo
// restores the oldest undone entry. The two scans run in opposite directions
// on purpose and callers rely on that exact behavior.
package oplog

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Log is an append-mostly sequence of operations. It is not safe for
// concurrent use; a room's handler owns it exclusively.
type Log struct {
	ops   []*Operation
	index map[string]*Operation
	newID func() string
	now   func() time.Time
}

// Option customizes a Log.
type Option func(*Log)

// WithIDs replaces the ULID generator, mostly for tests.
func WithIDs(fn func() string) Option {
	return func(l *Log) { l.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(l *Log) { l.now = fn }
}

func New(opts ...Option) *Log {
	l := &Log{
		index: make(map[string]*Operation),
		newID: func() string { return ulid.Make().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Len returns the number of entries, undone ones included.
func (l *Log) Len() int {
	return len(l.ops)
}

// Get returns a copy of the entry with the given id.
func (l *Log) Get(id string) (Operation, bool) {
	op, ok := l.index[id]
	if !ok {
		return Operation{}, false
	}
	return op.Clone(), true
}

// Commit assigns identity and timestamp to draft and appends it.
func (l *Log) Commit(draft Draft) Operation {
	op := &Operation{
		ID:          l.newID(),
		Type:        draft.Type,
		AuthorID:    draft.AuthorID,
		AuthorColor: draft.AuthorColor,
		CreatedAt:   l.now().UTC(),
		Payload:     copyPayload(draft.Payload),
	}
	l.ops = append(l.ops, op)
	l.index[op.ID] = op
	return op.Clone()
}

// ApplyPositionalUpdate overwrites the move/resize fields of an existing
// entry. A missing target is not an error; it returns false.
func (l *Log) ApplyPositionalUpdate(targetID string, kind Type, fields map[string]any) (Operation, bool) {
	op, ok := l.index[targetID]
	if !ok {
		return Operation{}, false
	}
	if !ApplyFields(op.Payload, kind, fields) {
		return Operation{}, false
	}
	return op.Clone(), true
}

// UndoByUser flags the newest active entry authored by userID.
func (l *Log) UndoByUser(userID string) (Operation, bool) {
	return l.undo(func(op *Operation) bool { return op.AuthorID == userID })
}

// RedoByUser restores the oldest undone entry authored by userID.
func (l *Log) RedoByUser(userID string) (Operation, bool) {
	return l.redo(func(op *Operation) bool { return op.AuthorID == userID })
}

// GlobalUndo flags the newest active entry regardless of author.
func (l *Log) GlobalUndo() (Operation, bool) {
	return l.undo(func(*Operation) bool { return true })
}

// GlobalRedo restores the oldest undone entry regardless of author.
func (l *Log) GlobalRedo() (Operation, bool) {
	return l.redo(func(*Operation) bool { return true })
}

func (l *Log) undo(match func(*Operation) bool) (Operation, bool) {
	for i := len(l.ops) - 1; i >= 0; i-- {
		op := l.ops[i]
		if op.Undone || !match(op) {
			continue
		}
		op.Undone = true
		return op.Clone(), true
	}
	return Operation{}, false
}

func (l *Log) redo(match func(*Operation) bool) (Operation, bool) {
	for _, op := range l.ops {
		if !op.Undone || !match(op) {
			continue
		}
		op.Undone = false
		return op.Clone(), true
	}
	return Operation{}, false
}

// ClearByUser flags every active entry by userID as undone and returns the
// entries it flipped, in log order.
func (l *Log) ClearByUser(userID string) []Operation {
	var flipped []Operation
	for _, op := range l.ops {
		if op.AuthorID != userID || op.Undone {
			continue
		}
		op.Undone = true
		flipped = append(flipped, op.Clone())
	}
	return flipped
}

// ClearAll discards the whole history. It cannot be undone.
func (l *Log) ClearAll() {
	l.ops = nil
	l.index = make(map[string]*Operation)
}

// Snapshot returns every entry in commit order, undone ones included.
func (l *Log) Snapshot() []Operation {
	out := make([]Operation, 0, len(l.ops))
	for _, op := range l.ops {
		out = append(out, op.Clone())
	}
	return out
}
