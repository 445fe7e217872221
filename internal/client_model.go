package internal

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"sketchroom/internal/protocol"
)

const maxNotices = 5

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	board           *protocol.Board
	serverURL       string
	roomKey         string
	username        string
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	connectionError error
	mode            appMode
	notices         []string
	selected        int
	cursorX         float64
	cursorY         float64
}

type appMode int

const (
	modeJoinPrompt appMode = iota
	modeBoard
	modeTextPrompt
)

func NewTUIModel(serverURL, roomKey, username string) *TUIModel {
	input := textinput.New()
	input.CharLimit = 120
	input.Prompt = "> "

	if username == "" {
		username = defaultUsername()
	}

	model := &TUIModel{
		textInput: input,
		board:     protocol.NewBoard(),
		serverURL: serverURL,
		roomKey:   roomKey,
		username:  username,
	}
	if roomKey == "" {
		model.mode = modeJoinPrompt
		model.textInput.Placeholder = "Room key (empty for a new room)…"
		model.textInput.Prompt = "room> "
		model.textInput.Focus()
	} else {
		model.mode = modeBoard
	}
	return model
}

func defaultUsername() string {
	if user := os.Getenv("SKETCHROOM_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anonymous"
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeBoard {
		return model.connectCmd()
	}
	return textinput.Blink
}

func (model *TUIModel) notice(text string) {
	model.notices = append(model.notices, text)
	if len(model.notices) > maxNotices {
		model.notices = model.notices[len(model.notices)-maxNotices:]
	}
}
