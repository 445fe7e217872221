package protocol

import (
	"github.com/google/uuid"

	"sketchroom/internal/oplog"
	"sketchroom/internal/session"
)

// LiveStroke is a remote stroke still being drawn.
type LiveStroke struct {
	AuthorID string
	TempID   string
	Color    string
	Segments int
	Points   []any
}

// Board is a client's complete view of a room, fed by server events.
type Board struct {
	RoomID    string
	Self      *session.User
	Users     []*session.User
	Theme     string
	Ops       *Reconciler
	Kicked    bool
	LastError *Error

	live     map[string]*LiveStroke
	previews map[string]Preview
	cursors  map[string]Cursor
	newTemp  func() string
}

func NewBoard() *Board {
	return &Board{
		Ops:      NewReconciler(),
		live:     make(map[string]*LiveStroke),
		previews: make(map[string]Preview),
		cursors:  make(map[string]Cursor),
		newTemp:  func() string { return "tmp-" + uuid.NewString() },
	}
}

func liveKey(authorID, tempID string) string {
	return authorID + "/" + tempID
}

func previewKey(userID, kind string) string {
	return userID + "/" + kind
}

func (b *Board) draftOperation(kind oplog.Type, data map[string]any) oplog.Operation {
	draft := oplog.Operation{Type: CommitType(kind), Payload: data}
	if b.Self != nil {
		draft.AuthorID = b.Self.ID
		draft.AuthorColor = b.Self.Color
	}
	return draft.Clone()
}

// Draft creates an optimistic placeholder for a durable edit made by this
// client and returns the request to send. The placeholder stays pending
// until the server echoes its tempId back.
func (b *Board) Draft(kind oplog.Type, data map[string]any) EditRequest {
	tempID := b.newTemp()
	b.Ops.AddPending(tempID, b.draftOperation(kind, data))

	payload := oplog.Operation{Payload: data}.Clone().Payload
	payload["tempId"] = tempID
	return EditRequest{Kind: kind, Data: payload}
}

// BeginStroke opens a placeholder for a freehand stroke that is streamed in
// segments and returns its tempId.
func (b *Board) BeginStroke(data map[string]any) string {
	tempID := b.newTemp()
	b.Ops.AddPending(tempID, b.draftOperation(oplog.TypeDraw, data))
	return tempID
}

// Segment builds the request for the next piece of a stroke. Intermediate
// segments carry only their own points; the final one carries the whole
// stroke because it is the one the server commits.
func (b *Board) Segment(tempID string, points []any, final bool) EditRequest {
	data := map[string]any{"tempId": tempID, "final": final}
	entry := b.Ops.Lookup(tempID)
	if entry == nil || entry.State != Pending {
		data["points"] = points
		return EditRequest{Kind: oplog.TypeDrawIncremental, Data: data}
	}
	accumulated, _ := entry.Operation.Payload["points"].([]any)
	accumulated = append(accumulated, points...)
	entry.Operation.Payload["points"] = accumulated
	if !final {
		data["points"] = points
		return EditRequest{Kind: oplog.TypeDrawIncremental, Data: data}
	}
	for key, value := range entry.Operation.Payload {
		data[key] = value
	}
	data["points"] = append([]any(nil), accumulated...)
	return EditRequest{Kind: oplog.TypeDrawIncremental, Data: data}
}

// Apply folds one server event into the board. It reports whether the
// visible state changed.
func (b *Board) Apply(env Envelope) (bool, error) {
	switch env.Type {
	case TypeWelcome:
		var welcome Welcome
		if err := env.Bind(&welcome); err != nil {
			return false, err
		}
		b.RoomID = welcome.RoomID
		b.Self = welcome.Self
		b.Users = welcome.Users
		b.Theme = welcome.Theme
		b.Kicked = false
		b.Ops.Load(welcome.Operations)
		b.live = make(map[string]*LiveStroke)
		b.previews = make(map[string]Preview)
		b.cursors = make(map[string]Cursor)
		return true, nil

	case TypeUsers:
		var users Users
		if err := env.Bind(&users); err != nil {
			return false, err
		}
		b.Users = users.Users
		if b.Self != nil {
			for _, user := range users.Users {
				if user.ID == b.Self.ID {
					b.Self = user
				}
			}
		}
		return true, nil

	case TypeAdminGranted:
		if b.Self != nil {
			b.Self.IsAdmin = true
		}
		return true, nil

	case TypeOperation:
		var committed Committed
		if err := env.Bind(&committed); err != nil {
			return false, err
		}
		if committed.TempID != "" {
			delete(b.live, liveKey(committed.Operation.AuthorID, committed.TempID))
		}
		_, outcome := b.Ops.Confirm(committed.Operation, committed.TempID)
		return outcome != Duplicate, nil

	case TypeStrokeSegment:
		var segment StrokeSegment
		if err := env.Bind(&segment); err != nil {
			return false, err
		}
		if b.Self != nil && segment.AuthorID == b.Self.ID {
			// our own stroke is already drawn locally
			return false, nil
		}
		key := liveKey(segment.AuthorID, segment.TempID)
		stroke, ok := b.live[key]
		if !ok {
			stroke = &LiveStroke{AuthorID: segment.AuthorID, TempID: segment.TempID, Color: segment.Color}
			b.live[key] = stroke
		}
		stroke.Segments += 1
		if points, ok := segment.Data["points"].([]any); ok {
			stroke.Points = append(stroke.Points, points...)
		}
		return true, nil

	case TypePositional:
		var positional Positional
		if err := env.Bind(&positional); err != nil {
			return false, err
		}
		return b.Ops.ApplyPositional(positional.TargetID, positional.Kind, positional.Fields), nil

	case TypeUndoUpdate:
		var update UndoUpdate
		if err := env.Bind(&update); err != nil {
			return false, err
		}
		return b.Ops.SetUndone(update.OperationID, update.Undone), nil

	case TypeCleared:
		var cleared Cleared
		if err := env.Bind(&cleared); err != nil {
			return false, err
		}
		changed := false
		for _, id := range cleared.OperationIDs {
			if b.Ops.SetUndone(id, true) {
				changed = true
			}
		}
		return changed, nil

	case TypeClearedAll:
		b.Ops.ClearAll()
		b.live = make(map[string]*LiveStroke)
		return true, nil

	case TypeCursor:
		var cursor Cursor
		if err := env.Bind(&cursor); err != nil {
			return false, err
		}
		b.cursors[cursor.UserID] = cursor
		return true, nil

	case TypeShapePreview, TypeTextPreview, TypeMovePreview:
		var preview Preview
		if err := env.Bind(&preview); err != nil {
			return false, err
		}
		key := previewKey(preview.UserID, env.Type)
		if preview.Phase == PhaseEnd {
			_, had := b.previews[key]
			delete(b.previews, key)
			return had, nil
		}
		b.previews[key] = preview
		return true, nil

	case TypeUserLeft:
		var left UserLeft
		if err := env.Bind(&left); err != nil {
			return false, err
		}
		b.forget(left.UserID)
		return true, nil

	case TypeKicked:
		b.Kicked = true
		return true, nil

	case TypeTheme:
		var theme Theme
		if err := env.Bind(&theme); err != nil {
			return false, err
		}
		b.Theme = theme.Theme
		return true, nil

	case TypeError:
		var failure Error
		if err := env.Bind(&failure); err != nil {
			return false, err
		}
		b.LastError = &failure
		return true, nil
	}
	return false, nil
}

func (b *Board) forget(userID string) {
	delete(b.cursors, userID)
	for key, stroke := range b.live {
		if stroke.AuthorID == userID {
			delete(b.live, key)
		}
	}
	for key, preview := range b.previews {
		if preview.UserID == userID {
			delete(b.previews, key)
		}
	}
}

// LiveStrokes returns remote strokes still in progress.
func (b *Board) LiveStrokes() []*LiveStroke {
	out := make([]*LiveStroke, 0, len(b.live))
	for _, stroke := range b.live {
		out = append(out, stroke)
	}
	return out
}

// Previews returns the active remote previews.
func (b *Board) Previews() []Preview {
	out := make([]Preview, 0, len(b.previews))
	for _, preview := range b.previews {
		out = append(out, preview)
	}
	return out
}

func (b *Board) Cursors() []Cursor {
	out := make([]Cursor, 0, len(b.cursors))
	for _, cursor := range b.cursors {
		out = append(out, cursor)
	}
	return out
}

// UserName resolves a user id against the current roster.
func (b *Board) UserName(userID string) string {
	for _, user := range b.Users {
		if user.ID == userID {
			return user.Name
		}
	}
	return ""
}
