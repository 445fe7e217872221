package internal

import (
	"fmt"
	"math/rand/v2"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"sketchroom/internal/oplog"
	"sketchroom/internal/protocol"
	"sketchroom/internal/session"
)

type (
	connectedMsg     struct{ conn *websocket.Conn }
	incomingMsg      protocol.Envelope
	skippedMsg       struct{}
	errorMsg         error
	readFailedMsg    struct {
		conn *websocket.Conn
		err  error
	}
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	roomInfoMsg      struct {
		key    string
		exists bool
		users  int
		err    error
	}
)

const (
	boardWidth  = 80.0
	boardHeight = 24.0
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		if typedMessage.Type == tea.KeyCtrlC {
			model.hangUp()
			return model, tea.Quit
		}
		switch model.mode {
		case modeJoinPrompt:
			return model, model.joinPromptKey(typedMessage)
		case modeTextPrompt:
			return model, model.textPromptKey(typedMessage)
		default:
			if typedMessage.Type == tea.KeyEsc || typedMessage.String() == "q" {
				model.hangUp()
				return model, tea.Quit
			}
			return model, model.boardKey(typedMessage)
		}

	case connectedMsg:
		model.websocketConn = typedMessage.conn
		model.isConnected = true
		model.connectionError = nil
		return model, model.readOnceCmd()

	case incomingMsg:
		return model, model.receive(protocol.Envelope(typedMessage))

	case skippedMsg:
		return model, model.readOnceCmd()

	case errorMsg:
		return model, model.lostConnection(typedMessage)

	case readFailedMsg:
		if typedMessage.conn != model.websocketConn {
			// a reader left over from an earlier connection
			return model, nil
		}
		return model, model.lostConnection(typedMessage.err)

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		if model.mode != modeJoinPrompt {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode != modeJoinPrompt && !model.isConnected && !model.board.Kicked {
			return model, model.connectCmd()
		}
		return model, nil

	case roomInfoMsg:
		switch {
		case typedMessage.err != nil:
			model.notice(fmt.Sprintf("Error checking room: %v", typedMessage.err))
		case typedMessage.exists:
			model.notice(fmt.Sprintf("Room %s has %d people drawing.", typedMessage.key, typedMessage.users))
		default:
			model.notice(fmt.Sprintf("Room %s is new. %s", typedMessage.key, inviteText(model.serverURL, typedMessage.key)))
		}
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) lostConnection(err error) tea.Cmd {
	if model.board.Kicked || !model.isConnected {
		return nil
	}
	model.hangUp()
	model.connectionError = err
	return model.scheduleReconnect()
}

func (model *TUIModel) hangUp() {
	model.isConnected = false
	if model.websocketConn == nil {
		return
	}
	model.writeMutex.Lock()
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	model.writeMutex.Unlock()
	_ = model.websocketConn.Close()
	model.websocketConn = nil
}

// receive applies one server event and keeps reading.
func (model *TUIModel) receive(env protocol.Envelope) tea.Cmd {
	if _, err := model.board.Apply(env); err != nil {
		model.notice(err.Error())
	}
	switch env.Type {
	case protocol.TypeAdminGranted:
		model.notice("You are now the room admin.")
	case protocol.TypeError:
		if model.board.LastError != nil {
			model.notice(model.board.LastError.Message)
		}
	case protocol.TypeKicked:
		name := "the admin"
		var kicked protocol.Kicked
		if env.Bind(&kicked) == nil && model.board.UserName(kicked.By) != "" {
			name = model.board.UserName(kicked.By)
		}
		model.notice("You were removed from the room by " + name + ".")
		model.hangUp()
		return nil
	}
	if users := model.board.Users; model.selected >= len(users) {
		model.selected = 0
	}
	return model.readOnceCmd()
}

func (model *TUIModel) joinPromptKey(key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEsc:
		return tea.Quit
	case tea.KeyEnter:
		roomKey := strings.TrimSpace(model.textInput.Value())
		if roomKey == "" {
			roomKey = generateSecureKey(10)
		}
		model.roomKey = roomKey
		model.mode = modeBoard
		model.textInput.SetValue("")
		model.textInput.Blur()
		return tea.Batch(model.connectCmd(), model.roomInfoCmd(roomKey))
	}
	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return cmd
}

func (model *TUIModel) textPromptKey(key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEsc:
		model.leavePrompt()
		return nil
	case tea.KeyEnter:
		text := strings.TrimSpace(model.textInput.Value())
		model.leavePrompt()
		if text == "" {
			return nil
		}
		req := model.board.Draft(oplog.TypeText, map[string]any{"text": text, "x": model.cursorX, "y": model.cursorY})
		return model.sendCmd(outbound{protocol.TypeEdit, req})
	}
	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return cmd
}

func (model *TUIModel) leavePrompt() {
	model.mode = modeBoard
	model.textInput.SetValue("")
	model.textInput.Blur()
}

func (model *TUIModel) boardKey(key tea.KeyMsg) tea.Cmd {
	if !model.isConnected || model.board.Self == nil {
		return nil
	}
	switch key.String() {
	case "d":
		return model.strokeCmd()
	case "s":
		req := model.board.Draft(oplog.TypeShape, map[string]any{
			"shape": "rect", "x": model.cursorX, "y": model.cursorY, "width": 8.0, "height": 4.0,
		})
		return model.sendCmd(outbound{protocol.TypeEdit, req})
	case "t":
		model.mode = modeTextPrompt
		model.textInput.Placeholder = "Text to place at the cursor…"
		model.textInput.Prompt = "text> "
		return model.textInput.Focus()
	case "m":
		return model.nudgeCmd()
	case "u":
		return model.sendCmd(outbound{eventType: protocol.TypeUndoRequest})
	case "r":
		return model.sendCmd(outbound{eventType: protocol.TypeRedoRequest})
	case "c":
		return model.sendCmd(outbound{eventType: protocol.TypeClearMine})
	case "U":
		return model.sendCmd(outbound{eventType: protocol.TypeAdminUndo})
	case "R":
		return model.sendCmd(outbound{eventType: protocol.TypeAdminRedo})
	case "C":
		return model.sendCmd(outbound{eventType: protocol.TypeAdminClearAll})
	case "tab":
		if n := len(model.board.Users); n > 0 {
			model.selected = (model.selected + 1) % n
		}
	case "shift+tab":
		if n := len(model.board.Users); n > 0 {
			model.selected = (model.selected - 1 + n) % n
		}
	case "K":
		if target := model.selectedUser(); target != nil {
			return model.sendCmd(outbound{protocol.TypeAdminKick, protocol.TargetRequest{UserID: target.ID}})
		}
	case "A":
		if target := model.selectedUser(); target != nil {
			return model.sendCmd(outbound{protocol.TypeAdminTransfer, protocol.TargetRequest{UserID: target.ID}})
		}
	case "T":
		theme := "dark"
		if model.board.Theme == "dark" {
			theme = "light"
		}
		return model.sendCmd(outbound{protocol.TypeSetTheme, protocol.ThemeRequest{Theme: theme}})
	case "up", "down", "left", "right":
		model.moveCursor(key.String())
		return model.sendCmd(outbound{protocol.TypeCursor, protocol.CursorRequest{X: model.cursorX, Y: model.cursorY}})
	}
	return nil
}

func (model *TUIModel) selectedUser() *session.User {
	users := model.board.Users
	if model.selected < 0 || model.selected >= len(users) {
		return nil
	}
	return users[model.selected]
}

func (model *TUIModel) moveCursor(direction string) {
	switch direction {
	case "up":
		model.cursorY = max(0, model.cursorY-1)
	case "down":
		model.cursorY = min(boardHeight, model.cursorY+1)
	case "left":
		model.cursorX = max(0, model.cursorX-1)
	case "right":
		model.cursorX = min(boardWidth, model.cursorX+1)
	}
}

// strokeCmd streams a short scribble from the cursor as three segments, the
// last of which carries the whole stroke.
func (model *TUIModel) strokeCmd() tea.Cmd {
	tempID := model.board.BeginStroke(map[string]any{"width": 1.0})
	x, y := model.cursorX, model.cursorY
	var events []outbound
	for i := 0; i < 3; i++ {
		points := make([]any, 0, 8)
		for j := 0; j < 4; j++ {
			x = min(boardWidth, max(0, x+rand.Float64()*2-1))
			y = min(boardHeight, max(0, y+rand.Float64()*2-1))
			points = append(points, x, y)
		}
		req := model.board.Segment(tempID, points, i == 2)
		events = append(events, outbound{protocol.TypeEdit, req})
	}
	model.cursorX, model.cursorY = x, y
	return model.sendCmd(events...)
}

// nudgeCmd moves our newest confirmed entry one cell right.
func (model *TUIModel) nudgeCmd() tea.Cmd {
	events := model.nudgeEvents()
	if events == nil {
		model.notice("Nothing of yours to move yet.")
		return nil
	}
	return model.sendCmd(events...)
}

// nudgeEvents mirrors the move as a move-preview, commits it, then ends the
// preview. It returns nil when we have nothing confirmed on the board.
func (model *TUIModel) nudgeEvents() []outbound {
	entries := model.board.Ops.Visible()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.State != protocol.Confirmed || entry.Operation.AuthorID != model.board.Self.ID {
			continue
		}
		x, _ := entry.Operation.Payload["x"].(float64)
		y, _ := entry.Operation.Payload["y"].(float64)
		fields := map[string]any{"targetId": entry.Key(), "x": min(boardWidth, x+1), "y": y}
		return []outbound{
			{protocol.TypeMovePreview, protocol.PreviewRequest{Data: fields}},
			{protocol.TypeEdit, protocol.EditRequest{Kind: oplog.TypeMove, Data: fields}},
			{protocol.TypeMovePreview, protocol.PreviewRequest{Phase: protocol.PhaseEnd, Data: map[string]any{"targetId": entry.Key()}}},
		}
	}
	return nil
}
