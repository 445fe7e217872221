package oplog

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newTestLog() *Log {
	n := 0
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return New(
		WithIDs(func() string {
			n += 1
			return fmt.Sprintf("op-%d", n)
		}),
		WithClock(func() time.Time {
			return base.Add(time.Duration(n) * time.Second)
		}),
	)
}

func commit(l *Log, author string) Operation {
	return l.Commit(Draft{
		Type:        TypeDraw,
		AuthorID:    author,
		AuthorColor: "#E53935",
		Payload:     map[string]any{"points": []any{0.1, 0.2}},
	})
}

func ids(ops []Operation) []string {
	out := []string{}
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func TestCommitOrder(t *testing.T) {
	l := newTestLog()
	for i := 0; i < 5; i += 1 {
		op := commit(l, "u1")
		assert.Equal(t, op.Undone, false)
		assert.Equal(t, op.AuthorID, "u1")
	}
	assert.Equal(t, ids(l.Snapshot()), []string{"op-1", "op-2", "op-3", "op-4", "op-5"})

	l.UndoByUser("u1")
	l.GlobalUndo()
	active := []string{}
	for _, op := range l.Snapshot() {
		if !op.Undone {
			active = append(active, op.ID)
		}
	}
	assert.Equal(t, active, []string{"op-1", "op-2", "op-3"})
	assert.Equal(t, l.Len(), 5)
}

func TestCommitCopiesPayload(t *testing.T) {
	l := newTestLog()
	payload := map[string]any{"x": 1.0}
	op := l.Commit(Draft{Type: TypeShape, AuthorID: "u1", Payload: payload})
	payload["x"] = 99.0

	stored, ok := l.Get(op.ID)
	assert.Equal(t, ok, true)
	assert.Equal(t, stored.Payload["x"], 1.0)
}

func TestUndoRedoAsymmetry(t *testing.T) {
	l := newTestLog()
	a := commit(l, "u1")
	b := commit(l, "u1")
	c := commit(l, "u1")

	undone, ok := l.UndoByUser("u1")
	assert.Equal(t, ok, true)
	assert.Equal(t, undone.ID, c.ID)

	undone, ok = l.UndoByUser("u1")
	assert.Equal(t, ok, true)
	assert.Equal(t, undone.ID, b.ID)

	// redo picks the oldest undone entry, which is B, not the most recently undone C
	redone, ok := l.RedoByUser("u1")
	assert.Equal(t, ok, true)
	assert.Equal(t, redone.ID, b.ID)
	assert.Equal(t, redone.Undone, false)

	redone, ok = l.RedoByUser("u1")
	assert.Equal(t, ok, true)
	assert.Equal(t, redone.ID, c.ID)

	_, ok = l.RedoByUser("u1")
	assert.Equal(t, ok, false)

	stored, _ := l.Get(a.ID)
	assert.Equal(t, stored.Undone, false)
}

func TestUndoSkipsOtherAuthors(t *testing.T) {
	l := newTestLog()
	mine := commit(l, "u1")
	commit(l, "u2")

	undone, ok := l.UndoByUser("u1")
	assert.Equal(t, ok, true)
	assert.Equal(t, undone.ID, mine.ID)

	_, ok = l.UndoByUser("u1")
	assert.Equal(t, ok, false)
	_, ok = l.RedoByUser("u2")
	assert.Equal(t, ok, false)
	_, ok = l.UndoByUser("nobody")
	assert.Equal(t, ok, false)
}

func TestGlobalUndoIgnoresAuthor(t *testing.T) {
	l := newTestLog()
	a := commit(l, "x")
	b := commit(l, "y")

	undone, ok := l.GlobalUndo()
	assert.Equal(t, ok, true)
	assert.Equal(t, undone.ID, b.ID)

	undone, ok = l.GlobalUndo()
	assert.Equal(t, ok, true)
	assert.Equal(t, undone.ID, a.ID)

	redone, ok := l.GlobalRedo()
	assert.Equal(t, ok, true)
	assert.Equal(t, redone.ID, a.ID)

	_, ok = l.GlobalUndo()
	assert.Equal(t, ok, true)
	_, ok = l.GlobalUndo()
	assert.Equal(t, ok, false)
}

func TestClearByUserIsReversible(t *testing.T) {
	l := newTestLog()
	a := commit(l, "u1")
	other := commit(l, "u2")
	b := commit(l, "u1")

	flipped := l.ClearByUser("u1")
	assert.Equal(t, ids(flipped), []string{a.ID, b.ID})

	stored, _ := l.Get(other.ID)
	assert.Equal(t, stored.Undone, false)

	_, ok := l.UndoByUser("u1")
	assert.Equal(t, ok, false)

	redone, _ := l.RedoByUser("u1")
	assert.Equal(t, redone.ID, a.ID)
	redone, _ = l.RedoByUser("u1")
	assert.Equal(t, redone.ID, b.ID)

	assert.Equal(t, len(l.ClearByUser("u3")), 0)
}

func TestClearAllIsIrreversible(t *testing.T) {
	l := newTestLog()
	a := commit(l, "u1")
	commit(l, "u2")
	l.UndoByUser("u2")

	l.ClearAll()
	assert.Equal(t, l.Len(), 0)
	assert.Equal(t, len(l.Snapshot()), 0)

	_, ok := l.GlobalRedo()
	assert.Equal(t, ok, false)
	_, ok = l.Get(a.ID)
	assert.Equal(t, ok, false)
}

func TestApplyPositionalUpdate(t *testing.T) {
	l := newTestLog()
	img := l.Commit(Draft{
		Type:     TypeImage,
		AuthorID: "u1",
		Payload:  map[string]any{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2, "src": "data:"},
	})

	moved, ok := l.ApplyPositionalUpdate(img.ID, TypeMove, map[string]any{"x": 0.5, "y": 0.6, "width": 9.0, "src": "evil"})
	assert.Equal(t, ok, true)
	assert.Equal(t, moved.Payload["x"], 0.5)
	assert.Equal(t, moved.Payload["y"], 0.6)
	assert.Equal(t, moved.Payload["width"], 0.2)
	assert.Equal(t, moved.Payload["src"], "data:")

	resized, ok := l.ApplyPositionalUpdate(img.ID, TypeResize, map[string]any{"width": 0.4})
	assert.Equal(t, ok, true)
	assert.Equal(t, resized.Payload["width"], 0.4)
	assert.Equal(t, resized.Payload["x"], 0.5)

	// no new entries are created for positional updates
	assert.Equal(t, l.Len(), 1)

	_, ok = l.ApplyPositionalUpdate("missing", TypeMove, map[string]any{"x": 1.0})
	assert.Equal(t, ok, false)
	_, ok = l.ApplyPositionalUpdate(img.ID, TypeDraw, map[string]any{"x": 1.0})
	assert.Equal(t, ok, false)
}

func TestSnapshotIsACopy(t *testing.T) {
	l := newTestLog()
	op := commit(l, "u1")
	snap := l.Snapshot()
	snap[0].Payload["points"] = nil
	snap[0].Undone = true

	stored, _ := l.Get(op.ID)
	assert.Equal(t, stored.Undone, false)
	if stored.Payload["points"] == nil {
		t.Fatalf("snapshot mutation leaked into the log")
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	l := New()
	seen := map[string]bool{}
	for i := 0; i < 100; i += 1 {
		op := commit(l, "u1")
		assert.Equal(t, seen[op.ID], false)
		seen[op.ID] = true
	}
}

func TestTypeClassification(t *testing.T) {
	assert.Equal(t, TypeDraw.Durable(), true)
	assert.Equal(t, TypeImage.Durable(), true)
	assert.Equal(t, TypeDrawIncremental.Durable(), false)
	assert.Equal(t, TypeMove.Durable(), false)
	assert.Equal(t, TypeResize.Positional(), true)
	assert.Equal(t, TypeMovePreview.Preview(), true)
	assert.Equal(t, TypeText.Preview(), false)
}
