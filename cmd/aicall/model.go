package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Avicted/aicall/internal/ipc"
)

type ipcEventMsg struct {
	msg ipc.Message
}

type ipcClosedMsg struct{}

type ipcSendErrMsg struct {
	err error
}

type callModel struct {
	client *daemonIPC
	events chan ipc.Message

	state     ipc.State
	messages  []ipc.Transcript
	seen      map[string]struct{}
	connected bool
	notice    string
	errMsg    string

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
}

func newCallModel(client *daemonIPC) callModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	return callModel{
		client:   client,
		events:   make(chan ipc.Message, 32),
		seen:     make(map[string]struct{}),
		input:    ti,
		viewport: vp,
	}
}

func (m callModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenIPC(m.client, m.events))
}

func listenIPC(client *daemonIPC, ch chan ipc.Message) tea.Cmd {
	return func() tea.Msg {
		go client.readLoop(ch)
		return waitForIPCMsg(ch)()
	}
}

func waitForIPCMsg(ch <-chan ipc.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return ipcClosedMsg{}
		}
		return ipcEventMsg{msg: msg}
	}
}

func sendIPC(client *daemonIPC, msg ipc.Message) tea.Cmd {
	return func() tea.Msg {
		if err := client.send(msg); err != nil {
			return ipcSendErrMsg{err: err}
		}
		return nil
	}
}

func (m callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ipcEventMsg:
		m.handleEvent(msg.msg)
		return m, waitForIPCMsg(m.events)

	case ipcClosedMsg:
		m.connected = false
		return m, nil

	case ipcSendErrMsg:
		m.errMsg = fmt.Sprintf("daemon unreachable: %v", msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m callModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+q", "ctrl+c":
		return m, tea.Quit
	case "ctrl+s":
		m.errMsg = ""
		m.notice = ""
		return m, sendIPC(m.client, ipc.Message{Cmd: ipc.CommandStartCall})
	case "ctrl+e":
		return m, sendIPC(m.client, ipc.Message{Cmd: ipc.CommandEndCall})
	case "ctrl+l":
		return m, sendIPC(m.client, ipc.Message{Cmd: ipc.CommandClear})
	case "ctrl+r":
		if m.connected {
			return m, nil
		}
		m.errMsg = ""
		m.events = make(chan ipc.Message, 32)
		return m, listenIPC(m.client, m.events)
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.errMsg = ""
		return m, sendIPC(m.client, ipc.Message{Cmd: ipc.CommandSendMessage, Text: text})
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *callModel) handleEvent(msg ipc.Message) {
	switch msg.Event {
	case ipc.EventReady:
		m.connected = true
		if msg.State != nil {
			m.state = *msg.State
		}
		m.messages = nil
		m.seen = make(map[string]struct{})
		for _, t := range msg.Messages {
			m.appendMessage(t)
		}
	case ipc.EventState:
		m.connected = true
		if msg.State != nil {
			m.state = *msg.State
		}
		for _, t := range msg.Messages {
			m.appendMessage(t)
		}
	case ipc.EventMessage:
		m.connected = true
		if msg.Message != nil {
			m.appendMessage(*msg.Message)
		}
	case ipc.EventCallEnded:
		if msg.Summary != nil {
			m.notice = formatSummary(*msg.Summary)
		}
	case ipc.EventCleared:
		m.messages = nil
		m.seen = make(map[string]struct{})
		m.notice = ""
	case ipc.EventError:
		m.errMsg = msg.Error
	}
	m.refreshViewport()
}

func (m *callModel) appendMessage(t ipc.Transcript) {
	if t.ID != "" {
		if _, ok := m.seen[t.ID]; ok {
			return
		}
		m.seen[t.ID] = struct{}{}
	}
	m.messages = append(m.messages, t)
}

func (m *callModel) updateLayout() {
	m.viewport.Width = clampMin(m.width, 1)
	m.viewport.Height = clampMin(m.height-7, 1)
	m.input.Width = clampMin(m.width-6, 1)
	m.refreshViewport()
}

func (m *callModel) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m callModel) renderTranscript() string {
	if len(m.messages) == 0 {
		return helpStyle.Render("  no messages yet")
	}
	width := clampMin(m.viewport.Width-4, 10)
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, t := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		name := userMsgStyle.Render("you")
		if t.Speaker == "ai" {
			name = aiMsgStyle.Render("ai")
		}
		line := fmt.Sprintf("%s %s: %s", labelStyle.Render(formatTime(t.Timestamp)), name, t.Text)
		for _, l := range strings.Split(wrap.Render(line), "\n") {
			b.WriteString("  " + l + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m callModel) View() string {
	var b strings.Builder

	connStatus := connectedStyle.Render("connected")
	if !m.connected {
		connStatus = disconnectedStyle.Render("disconnected")
	}
	header := fmt.Sprintf("%s  %s  %s",
		appNameStyle.Render("aicall"),
		statusBadge(m.state.Status, m.state.Active),
		connStatus,
	)
	b.WriteString(centerText(header, m.width))
	b.WriteString("\n")
	b.WriteString(separator(m.width))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(separator(m.width))
	b.WriteString("\n")
	b.WriteString(activeInputStyle.Render("  > "))
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render("  x " + m.errMsg))
	case m.state.Error != "":
		b.WriteString(errorStyle.Render("  x " + m.state.Error))
	case m.notice != "":
		b.WriteString(noticeStyle.Render("  " + m.notice))
	default:
		help := "  ctrl+s start call | ctrl+e end call | enter send | ctrl+l clear | ctrl+q quit"
		if !m.connected {
			help = "  ctrl+r reconnect | ctrl+q quit"
		}
		b.WriteString(helpStyle.Render(help))
	}
	return b.String()
}

func formatSummary(s ipc.Summary) string {
	d := (time.Duration(s.DurationMS) * time.Millisecond).Round(time.Second)
	reason := s.Reason
	if reason == "" {
		reason = "ended"
	}
	return fmt.Sprintf("call ended (%s) after %s, %d utterances, %d messages", reason, d, s.Utterances, s.Messages)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "--:--"
	}
	return ts.Local().Format("15:04")
}

func clampMin(v, minimum int) int {
	if v < minimum {
		return minimum
	}
	return v
}
