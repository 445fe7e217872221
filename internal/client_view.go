package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sketchroom/internal/oplog"
	"sketchroom/internal/protocol"
	"sketchroom/internal/session"
)

const visibleOps = 12

// pre styled colors// all from lipglpss
var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	menuBoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	noticeBoxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(0, 1).MarginTop(1)
	boardHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	opsBoxStyle        = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1).MarginTop(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	pendingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Italic(true)
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	themeBorders       = map[string]lipgloss.Color{
		"light": lipgloss.Color("252"),
		"dark":  lipgloss.Color("60"),
	}
)

func (model *TUIModel) View() string {
	switch model.mode {
	case modeJoinPrompt:
		return model.renderPrompt("SketchRoom", "Enter a room key to join, or press Enter to start a new room.")
	case modeTextPrompt:
		return model.renderPrompt("Add text", "Type the text to place at the cursor. Esc cancels.")
	default:
		return model.renderBoardView()
	}
}

func (model *TUIModel) renderPrompt(title, hint string) string {
	sections := []string{appTitleStyle.Render(title), menuHintStyle.Render(hint)}
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, inputBoxStyle.Render(model.textInput.View()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderBoardView() string {
	headerSegments := []string{"SketchRoom", fmt.Sprintf("Room %s", model.roomKey), fmt.Sprintf("User %s", model.username)}
	if model.board.Theme != "" {
		headerSegments = append(headerSegments, fmt.Sprintf("Theme %s", model.board.Theme))
	}
	headerSegments = append(headerSegments, fmt.Sprintf("Server %s", model.serverURL))
	header := boardHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.board.Kicked:
		statusLine = errorStyle.Render("Removed from room")
	case model.connectionError != nil && !model.isConnected:
		statusLine = errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.isConnected:
		statusLine = connectedStyle.Render(fmt.Sprintf("Connected  cursor (%.0f, %.0f)", model.cursorX, model.cursorY))
	default:
		statusLine = connectingStyle.Render("Connecting…")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, model.renderRoster(), "  ", model.renderOps())
	sections := []string{header, statusLine, body}
	if activity := model.renderActivity(); activity != "" {
		sections = append(sections, activity)
	}
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	hint := "d draw • s shape • t text • m move • ←↑↓→ cursor • u/r undo/redo • c clear mine • T theme • q quit"
	if model.board.Self != nil && model.board.Self.IsAdmin {
		hint += "\nadmin: U/R global undo/redo • C clear all • tab select • K kick • A make admin"
	}
	sections = append(sections, menuHintStyle.Render(hint))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderRoster() string {
	lines := []string{usernameStyle.Render("People")}
	for idx, user := range model.board.Users {
		prefix := "  "
		if idx == model.selected {
			prefix = selectedStyle.Render("➤ ")
		}
		line := prefix + renderUser(user)
		if model.board.Self != nil && user.ID == model.board.Self.ID {
			line += timestampStyle.Render(" (you)")
		}
		lines = append(lines, line)
	}
	return menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model *TUIModel) renderOps() string {
	entries := model.board.Ops.Visible()
	if len(entries) > visibleOps {
		entries = entries[len(entries)-visibleOps:]
	}
	lines := []string{usernameStyle.Render(fmt.Sprintf("Board (%d items)", model.board.Ops.Len()))}
	for _, entry := range entries {
		lines = append(lines, model.renderEntry(entry))
	}
	if len(entries) == 0 {
		lines = append(lines, systemMessageStyle.Render("Nothing drawn yet. Press d to scribble."))
	}
	style := opsBoxStyle.BorderForeground(lipgloss.Color("60"))
	if color, ok := themeBorders[model.board.Theme]; ok {
		style = opsBoxStyle.BorderForeground(color)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model *TUIModel) renderEntry(entry *protocol.Entry) string {
	op := entry.Operation
	name := model.board.UserName(op.AuthorID)
	if name == "" {
		name = "someone"
	}
	author := usernameStyle.Copy().Foreground(lipgloss.Color(op.AuthorColor)).Render(name)
	line := fmt.Sprintf("%s %s", author, describe(op))
	if entry.State == protocol.Pending {
		return timestampStyle.Render("[ sending ]") + " " + line + pendingStyle.Render(" …")
	}
	return timestampStyle.Render(fmt.Sprintf("[%s]", op.CreatedAt.Local().Format("15:04:05"))) + " " + line
}

func describe(op oplog.Operation) string {
	switch op.Type {
	case oplog.TypeDraw:
		points, _ := op.Payload["points"].([]any)
		return fmt.Sprintf("drew a stroke (%d points)", len(points)/2)
	case oplog.TypeShape:
		shape, _ := op.Payload["shape"].(string)
		return "added a " + shape
	case oplog.TypeText:
		text, _ := op.Payload["text"].(string)
		return fmt.Sprintf("wrote %q", text)
	case oplog.TypeImage:
		return "placed an image"
	}
	return string(op.Type)
}

func (model *TUIModel) renderActivity() string {
	var parts []string
	for _, stroke := range model.board.LiveStrokes() {
		parts = append(parts, fmt.Sprintf("%s is drawing…", model.board.UserName(stroke.AuthorID)))
	}
	for _, preview := range model.board.Previews() {
		parts = append(parts, fmt.Sprintf("%s is placing something…", model.board.UserName(preview.UserID)))
	}
	if len(parts) == 0 {
		return ""
	}
	return pendingStyle.Render(strings.Join(parts, "  "))
}

func (model *TUIModel) renderNotices() string {
	if len(model.notices) == 0 {
		return ""
	}
	lines := make([]string, 0, len(model.notices))
	for _, text := range model.notices {
		lines = append(lines, systemMessageStyle.Render(text))
	}
	return noticeBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderUser paints a roster name in the user's board color.
func renderUser(user *session.User) string {
	name := usernameStyle.Copy().Foreground(lipgloss.Color(user.Color)).Render(user.Name)
	if user.IsAdmin {
		name += selectedStyle.Render(" ★")
	}
	return name
}
