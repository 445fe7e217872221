package storage

import (
	"context"
	"errors"
	"testing"
)

func TestRecordAndListAdminActions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	first, err := store.RecordAdminAction(ctx, AdminAction{RoomID: "r1", ActorID: "u1", Action: ActionUndo})
	if err != nil {
		t.Fatalf("RecordAdminAction: %v", err)
	}
	if first == 0 {
		t.Fatalf("expected id > 0")
	}
	if _, err := store.RecordAdminAction(ctx, AdminAction{RoomID: "r1", ActorID: "u1", Action: ActionKick, Target: "u2"}); err != nil {
		t.Fatalf("RecordAdminAction: %v", err)
	}
	if _, err := store.RecordAdminAction(ctx, AdminAction{RoomID: "r2", ActorID: "u9", Action: ActionClearAll}); err != nil {
		t.Fatalf("RecordAdminAction: %v", err)
	}

	actions, err := store.ListAdminActions(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("ListAdminActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %+v", actions)
	}
	if actions[0].Action != ActionKick || actions[0].Target != "u2" {
		t.Fatalf("expected newest first, got %+v", actions[0])
	}
	if actions[1].ID != first || actions[1].CreatedAt.IsZero() {
		t.Fatalf("unexpected oldest row: %+v", actions[1])
	}
}

func TestListAdminActionsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.RecordAdminAction(ctx, AdminAction{RoomID: "r1", ActorID: "u1", Action: ActionRedo}); err != nil {
			t.Fatalf("RecordAdminAction: %v", err)
		}
	}
	actions, err := store.ListAdminActions(ctx, "r1", 2)
	if err != nil || len(actions) != 2 {
		t.Fatalf("expected 2 actions: %+v, err=%v", actions, err)
	}
	actions, err = store.ListAdminActions(ctx, "missing", 0)
	if err != nil || len(actions) != 0 {
		t.Fatalf("expected no actions: %+v, err=%v", actions, err)
	}
}

func TestRecordRejectsIncompleteAction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := store.RecordAdminAction(ctx, AdminAction{ActorID: "u1", Action: ActionUndo}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := store.RecordAdminAction(ctx, AdminAction{RoomID: "r1"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("migrate %d: %v", i, err)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
