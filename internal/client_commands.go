package internal

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"sketchroom/internal/protocol"
)

var errNotConnected = errors.New("websocket not connected")

// outbound is one event queued for the server.
type outbound struct {
	eventType string
	payload   any
}

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// connectCmd dials the server and sends the join frame.
func (model *TUIModel) connectCmd() tea.Cmd {
	serverURL, roomKey, username := model.serverURL, model.roomKey, model.username
	return func() tea.Msg {
		joinURL, err := buildJoinURL(serverURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(joinURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		frame, err := protocol.Encode(protocol.TypeJoin, protocol.JoinRequest{RoomID: roomKey, Name: username})
		if err == nil {
			err = conn.WriteMessage(websocket.TextMessage, frame)
		}
		if err != nil {
			_ = conn.Close()
			return connectFailedMsg{err: err}
		}
		return connectedMsg{conn: conn}
	}
}

// roomInfoCmd asks the HTTP surface about a room before joining it.
func (model *TUIModel) roomInfoCmd(key string) tea.Cmd {
	serverURL := model.serverURL
	return func() tea.Msg {
		urlStr, err := buildRoomURL(serverURL, key)
		if err != nil {
			return roomInfoMsg{key: key, err: err}
		}
		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(urlStr)
		if err != nil {
			return roomInfoMsg{key: key, err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return roomInfoMsg{key: key}
		}
		var info RoomInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return roomInfoMsg{key: key, err: err}
		}
		return roomInfoMsg{key: key, exists: true, users: len(info.Users)}
	}
}

// readOnceCmd reads one frame. Frames that do not decode are skipped.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	conn := model.websocketConn
	return func() tea.Msg {
		if conn == nil {
			return errorMsg(errNotConnected)
		}
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return readFailedMsg{conn: conn, err: err}
		}
		if messageType != websocket.TextMessage {
			return skippedMsg{}
		}
		env, err := protocol.Decode(payload)
		if err != nil {
			return skippedMsg{}
		}
		return incomingMsg(env)
	}
}

// sendCmd writes events in order on the shared connection.
func (model *TUIModel) sendCmd(events ...outbound) tea.Cmd {
	conn := model.websocketConn
	return func() tea.Msg {
		if conn == nil {
			return errorMsg(errNotConnected)
		}
		model.writeMutex.Lock()
		defer model.writeMutex.Unlock()
		for _, event := range events {
			frame, err := protocol.Encode(event.eventType, event.payload)
			if err != nil {
				return errorMsg(err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return errorMsg(err)
			}
		}
		return nil
	}
}

//entry for bubbletea
func RunClient(serverURL, roomKey, username string) error {
	program := tea.NewProgram(NewTUIModel(serverURL, roomKey, username))
	_, err := program.Run()
	return err
}

// buildJoinURL turns a server address into its websocket endpoint. http(s)
// schemes are mapped to ws(s) and an empty path becomes /ws.
func buildJoinURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/ws"
	}
	return parsed.String(), nil
}

// buildRoomURL points at the room inspection endpoint, e.g.
// ws://localhost:8080/ws -> http://localhost:8080/rooms/KEY
func buildRoomURL(wsBase string, roomKey string) (string, error) {
	parsed, err := url.Parse(wsBase)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws", "http":
		parsed.Scheme = "http"
	case "wss", "https":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	parsed.Path = "/rooms/" + roomKey
	parsed.RawPath = "/rooms/" + url.PathEscape(roomKey)
	parsed.RawQuery = ""
	return parsed.String(), nil
}

// make shareable room code using base32
func generateSecureKey(length int) string {
	if length < 8 {
		length = 8
	}
	// base32 encoding gets 1.6 bytes per char
	byteLen := (length * 5) / 8
	if (length*5)%8 != 0 {
		byteLen++
	}
	b := make([]byte, byteLen)
	_, _ = rand.Read(b)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	if len(enc) >= length {
		return enc[:length]
	}
	return enc
}

func inviteText(serverURL, roomKey string) string {
	var sb strings.Builder
	sb.WriteString("Invite others with:  sketchroom join --server ")
	sb.WriteString(serverURL)
	sb.WriteString(" ")
	sb.WriteString(roomKey)
	return sb.String()
}
