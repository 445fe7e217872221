package internal

import (
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"

	"sketchroom/internal/oplog"
	"sketchroom/internal/protocol"
	"sketchroom/internal/session"
	"sketchroom/internal/storage"
)

const maxThemeRunes = 32

// dispatch routes one event from a joined member. Events from connections
// that are not (or no longer) members are dropped.
func (room *Room) dispatch(client *Client, env protocol.Envelope) {
	user, ok := room.members[client]
	if !ok {
		glog.V(1).Infof("[room] %s: %s from non-member %s dropped", room.key, env.Type, client.id)
		return
	}

	switch env.Type {
	case protocol.TypeEdit:
		room.edit(user, env)

	case protocol.TypeCursor:
		var req protocol.CursorRequest
		if !room.bind(env, &req) {
			return
		}
		glog.V(2).Infof("[room] %s: cursor %s (%.1f, %.1f)", room.key, user.ID, req.X, req.Y)
		room.broadcast(protocol.TypeCursor, protocol.Cursor{UserID: user.ID, Name: user.Name, Color: user.Color, X: req.X, Y: req.Y})

	case protocol.TypeShapePreview, protocol.TypeTextPreview, protocol.TypeMovePreview:
		var req protocol.PreviewRequest
		if !room.bind(env, &req) {
			return
		}
		room.previews.Observe(user.ID, env.Type, req.Phase)
		glog.V(2).Infof("[room] %s: %s %s phase=%q", room.key, env.Type, user.ID, req.Phase)
		room.broadcast(env.Type, protocol.Preview{UserID: user.ID, Color: user.Color, Phase: req.Phase, Data: req.Data})

	case protocol.TypeUndoRequest:
		if op, ok := room.log.UndoByUser(user.ID); ok {
			room.announceUndo(op, user)
		}

	case protocol.TypeRedoRequest:
		if op, ok := room.log.RedoByUser(user.ID); ok {
			room.announceUndo(op, user)
		}

	case protocol.TypeClearMine:
		room.clearMine(user)

	case protocol.TypeAdminUndo:
		if !room.requireAdmin(client, user, env.Type) {
			return
		}
		if op, ok := room.log.GlobalUndo(); ok {
			room.hub.audit.record(room.key, user.ID, storage.ActionUndo, op.ID)
			room.announceUndo(op, user)
		}

	case protocol.TypeAdminRedo:
		if !room.requireAdmin(client, user, env.Type) {
			return
		}
		if op, ok := room.log.GlobalRedo(); ok {
			room.hub.audit.record(room.key, user.ID, storage.ActionRedo, op.ID)
			room.announceUndo(op, user)
		}

	case protocol.TypeAdminClearAll:
		if !room.requireAdmin(client, user, env.Type) {
			return
		}
		room.log.ClearAll()
		glog.Infof("[room] %s: history cleared by %s", room.key, user.ID)
		room.hub.audit.record(room.key, user.ID, storage.ActionClearAll, "")
		room.broadcast(protocol.TypeClearedAll, protocol.ClearedAll{By: user.ID})

	case protocol.TypeAdminKick:
		if !room.requireAdmin(client, user, env.Type) {
			return
		}
		var req protocol.TargetRequest
		if !room.bind(env, &req) {
			return
		}
		room.kick(user, req.UserID)

	case protocol.TypeAdminTransfer:
		if !room.requireAdmin(client, user, env.Type) {
			return
		}
		var req protocol.TargetRequest
		if !room.bind(env, &req) {
			return
		}
		room.transfer(user, req.UserID)

	case protocol.TypeSetTheme:
		var req protocol.ThemeRequest
		if !room.bind(env, &req) {
			return
		}
		room.setTheme(user, req.Theme)

	default:
		glog.V(1).Infof("[room] %s: unknown event %q from %s", room.key, env.Type, user.ID)
	}
}

func (room *Room) bind(env protocol.Envelope, out any) bool {
	if err := env.Bind(out); err != nil {
		glog.V(1).Infof("[room] %s: %v", room.key, err)
		return false
	}
	return true
}

// requireAdmin answers a non-admin with a forbidden error that only they see.
func (room *Room) requireAdmin(client *Client, user *session.User, eventType string) bool {
	if user.IsAdmin {
		return true
	}
	glog.V(1).Infof("[room] %s: %s refused for %s", room.key, eventType, user.ID)
	room.unicast(client, protocol.TypeError, protocol.Error{
		Code:    protocol.CodeForbidden,
		Message: eventType + " requires the room admin",
	})
	return false
}

func (room *Room) edit(user *session.User, env protocol.Envelope) {
	var req protocol.EditRequest
	if !room.bind(env, &req) {
		return
	}

	switch protocol.Classify(req) {
	case protocol.Commit:
		tempID, payload := protocol.SplitTempID(req.Data)
		if req.Kind == oplog.TypeDrawIncremental {
			delete(payload, "final")
		}
		op := room.log.Commit(oplog.Draft{
			Type:        protocol.CommitType(req.Kind),
			AuthorID:    user.ID,
			AuthorColor: user.Color,
			Payload:     payload,
		})
		room.hub.metrics.IncCommit()
		glog.V(1).Infof("[room] %s: commit %s %s by %s", room.key, op.Type, op.ID, user.ID)
		room.broadcast(protocol.TypeOperation, protocol.Committed{Operation: op, TempID: tempID})

	case protocol.Relay:
		tempID, data := protocol.SplitTempID(req.Data)
		room.broadcast(protocol.TypeStrokeSegment, protocol.StrokeSegment{
			AuthorID: user.ID,
			Color:    user.Color,
			TempID:   tempID,
			Data:     data,
		})

	case protocol.Mutate:
		targetID := protocol.TargetID(req.Data)
		if _, ok := room.log.ApplyPositionalUpdate(targetID, req.Kind, req.Data); !ok {
			glog.V(1).Infof("[room] %s: %s of missing %s dropped", room.key, req.Kind, targetID)
			return
		}
		room.broadcast(protocol.TypePositional, protocol.Positional{
			TargetID: targetID,
			Kind:     req.Kind,
			Fields:   oplog.PositionalFields(req.Kind, req.Data),
			By:       user.ID,
		})

	case protocol.ClearOwn:
		room.clearMine(user)

	default:
		glog.V(1).Infof("[room] %s: edit kind %q from %s dropped", room.key, req.Kind, user.ID)
	}
}

func (room *Room) announceUndo(op oplog.Operation, by *session.User) {
	room.broadcast(protocol.TypeUndoUpdate, protocol.UndoUpdate{OperationID: op.ID, Undone: op.Undone, By: by.ID})
}

func (room *Room) clearMine(user *session.User) {
	flipped := room.log.ClearByUser(user.ID)
	if len(flipped) == 0 {
		return
	}
	ids := make([]string, 0, len(flipped))
	for _, op := range flipped {
		ids = append(ids, op.ID)
	}
	room.broadcast(protocol.TypeCleared, protocol.Cleared{UserID: user.ID, OperationIDs: ids})
}

func (room *Room) kick(admin *session.User, targetID string) {
	if targetID == admin.ID {
		glog.V(1).Infof("[room] %s: %s tried to kick themselves", room.key, admin.ID)
		return
	}
	target := room.hub.registry.User(room.key, targetID)
	if target == nil {
		return
	}
	client, ok := target.Conn.(*Client)
	if !ok {
		return
	}
	glog.Infof("[room] %s: %s kicked by %s", room.key, target.ID, admin.ID)
	room.hub.audit.record(room.key, admin.ID, storage.ActionKick, target.ID)
	room.unicast(client, protocol.TypeKicked, protocol.Kicked{By: admin.ID})
	room.disconnect(client)
	room.depart(client)
}

func (room *Room) transfer(admin *session.User, targetID string) {
	handover := room.hub.registry.TransferAdmin(room.key, admin.ID, targetID)
	if handover == nil {
		return
	}
	glog.Infof("[room] %s: admin passed from %s to %s", room.key, handover.Old.ID, handover.New.ID)
	room.hub.audit.record(room.key, admin.ID, storage.ActionTransfer, handover.New.ID)
	room.broadcastUsers()
	room.sendTo(handover.New, protocol.TypeAdminGranted, protocol.AdminGranted{User: handover.New})
}

func (room *Room) setTheme(user *session.User, theme string) {
	theme = strings.TrimSpace(theme)
	if theme == "" || utf8.RuneCountInString(theme) > maxThemeRunes {
		glog.V(1).Infof("[room] %s: theme %q from %s rejected", room.key, theme, user.ID)
		return
	}
	room.session().Theme = theme
	room.broadcast(protocol.TypeTheme, protocol.Theme{Theme: theme, By: user.ID})
}
