// ABOUTME: Server TUI for displaying active sessions
// ABOUTME: Real-time server status display using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/rawstream-go/internal/pipeline"
)

const tuiRefresh = time.Second

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name     string
	Addr     string
	Sessions []pipeline.SessionInfo
}

type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	sessionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	hintStyle          = lipgloss.NewStyle().Faint(true)
)

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(tuiRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
		return m, nil
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Raw PCM Stream Server"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Server", m.status.Name)
	field("Listening", m.status.Addr)
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	b.WriteString("\n")

	b.WriteString(sessionHeaderStyle.Render(fmt.Sprintf("Active Sessions (%d)", len(m.status.Sessions))))
	b.WriteString("\n\n")

	if len(m.status.Sessions) == 0 {
		b.WriteString(valueStyle.Render("  No clients streaming"))
		b.WriteString("\n")
	}
	for _, s := range m.status.Sessions {
		b.WriteString(fmt.Sprintf("  • %s [%s]", s.Title, s.Source))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" %s, %s, %s sent, queue %d",
			s.Format, s.State, formatBytes(s.Bytes), s.QueueDepth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// formatBytes renders a byte count with a binary unit
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// NewServerTUI creates a new server TUI
func NewServerTUI(name, addr string) *ServerTUI {
	quit := make(chan struct{}, 1)
	m := tuiModel{
		status:    ServerStatus{Name: name, Addr: addr},
		startTime: time.Now(),
		quitChan:  quit,
	}

	return &ServerTUI{
		program:  tea.NewProgram(m, tea.WithAltScreen()),
		updates:  make(chan ServerStatus, 10),
		quitChan: quit,
		stopped:  make(chan struct{}),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start() error {
	go func() {
		for {
			select {
			case status := <-t.updates:
				t.program.Send(statusMsg(status))
			case <-t.stopped:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI without blocking
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopped)
		t.program.Quit()
	})
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}

// refreshTUI pushes session snapshots to the TUI until the server stops
func (s *Server) refreshTUI() {
	ticker := time.NewTicker(tuiRefresh)
	defer ticker.Stop()

	for {
		s.tui.Update(ServerStatus{
			Name:     s.config.Name,
			Addr:     s.config.Addr(),
			Sessions: s.orch.Sessions(),
		})

		select {
		case <-ticker.C:
		case <-s.stopChan:
			return
		}
	}
}
