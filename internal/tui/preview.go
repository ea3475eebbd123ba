package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"retint/internal/preview"
)

type previewKeys struct {
	Next key.Binding
	Quit key.Binding
}

func defaultPreviewKeys() previewKeys {
	return previewKeys{
		Next: key.NewBinding(
			key.WithKeys("n", " ", "enter"),
			key.WithHelp("n/space", "next batch"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PreviewModel advances a preview session one batch per key press. The
// session is only touched from the command goroutine while busy, so View
// reads the snapshot taken after each step instead.
type PreviewModel struct {
	ctx     context.Context
	session *preview.Session
	keys    previewKeys

	total   int
	batches int
	shown   int
	last    preview.Step
	done    bool
	busy    bool
	err     error

	quitting bool
}

type stepMsg struct {
	step preview.Step
	err  error
}

func NewPreviewModel(ctx context.Context, session *preview.Session) PreviewModel {
	return PreviewModel{
		ctx:     ctx,
		session: session,
		keys:    defaultPreviewKeys(),
		total:   session.Total(),
		batches: session.Batches(),
		done:    session.Done(),
		busy:    !session.Done(),
	}
}

// Err reports the error that stopped the session, if any.
func (m PreviewModel) Err() error { return m.err }

func (m PreviewModel) Init() tea.Cmd {
	if m.done {
		return nil
	}
	return advance(m.ctx, m.session)
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.busy = false
		m.last = msg.step
		if msg.step.Advanced {
			m.shown = msg.step.Range.Index + 1
		}
		m.done = m.session.Done()
		if msg.err != nil {
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.keys.Next.SetEnabled(!m.done)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if m.busy || m.done {
				return m, nil
			}
			m.busy = true
			return m, advance(m.ctx, m.session)
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m PreviewModel) View() string {
	if m.quitting {
		return ""
	}

	lines := []string{
		titleStyle.Render("retint preview"),
		labelStyle.Render(fmt.Sprintf("Batch: %d/%d", m.shown, m.batches)) + dimStyle.Render(fmt.Sprintf("  targets:%d", m.total)),
	}
	if m.last.Advanced {
		r := m.last.Range
		lines = append(lines, dimStyle.Render(fmt.Sprintf("Showing targets %d-%d (%d files)", r.Start, r.End-1, len(m.last.Written))))
	}
	lines = append(lines, dimStyle.Render("Output: "+m.session.Dir()))

	switch {
	case m.busy:
		lines = append(lines, statusStyle.Render("rendering..."))
	case m.done:
		lines = append(lines, doneStyle.Render("all batches shown"))
	}

	lines = append(lines, "", m.helpLine())
	return strings.Join(lines, "\n")
}

func (m PreviewModel) helpLine() string {
	var parts []string
	for _, b := range []key.Binding{m.keys.Next, m.keys.Quit} {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, keyStyle.Render(h.Key)+" "+dimStyle.Render(h.Desc))
	}
	return strings.Join(parts, dimStyle.Render(" • "))
}

func advance(ctx context.Context, session *preview.Session) tea.Cmd {
	return func() tea.Msg {
		step, err := session.Advance(ctx)
		return stepMsg{step: step, err: err}
	}
}

var (
	keyStyle    = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	statusStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	doneStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
)
