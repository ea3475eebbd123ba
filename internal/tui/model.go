package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"retint/internal/repack"
)

type Model struct {
	updates    <-chan repack.ProgressUpdate
	started    time.Time
	width      int
	total      int
	processed  int
	errors     int
	bytesDelta int64
	lastPath   string
	canceled   bool
	quitting   bool
	cancel     context.CancelFunc
}

type doneMsg struct{}

type updateMsg repack.ProgressUpdate

func NewModel(updates <-chan repack.ProgressUpdate) Model {
	return Model{updates: updates, started: time.Now()}
}

// WithCancel makes ctrl+c call cancel. The model keeps draining updates until
// the producer closes the channel.
func (m Model) WithCancel(cancel context.CancelFunc) Model {
	m.cancel = cancel
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.processed += msg.ProcessedDelta
		m.errors += msg.ErrorDelta
		m.bytesDelta += msg.BytesDelta
		if msg.Path != "" {
			m.lastPath = msg.Path
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.cancel != nil && !m.canceled {
			m.canceled = true
			m.cancel()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	bar := renderBar(barWidth(m.width), ratio(m.processed, m.total))
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("retint"),
		labelStyle.Render(fmt.Sprintf("Textures: %d/%d", m.processed, m.total)) + dimStyle.Render(fmt.Sprintf("  errors:%d", m.errors)),
		labelStyle.Render(fmt.Sprintf("Size change: %+d bytes", m.bytesDelta)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.lastPath != "" {
		lines = append(lines, dimStyle.Render(m.lastPath))
	}
	if m.canceled {
		lines = append(lines, dimStyle.Render("canceling..."))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan repack.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func barWidth(termWidth int) int {
	width := 40
	if termWidth > 0 {
		width = int(math.Min(60, float64(termWidth-10)))
		if width < 20 {
			width = 20
		}
	}
	return width
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(done) / float64(total)
	if r > 1 {
		r = 1
	}
	return r
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
