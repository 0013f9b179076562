// Package app is the terminal session driver: it shows the active tube's
// ready stitch and feeds completion outcomes into the cycle controller.
// It renders scheduling state only; question presentation belongs to a
// richer client.
package app

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/triplehelix/internal/helix"
	"github.com/abhisek/triplehelix/internal/stitch"
	"github.com/abhisek/triplehelix/internal/syncer"
	"github.com/abhisek/triplehelix/internal/ui/theme"
)

// DriverMaxScore is the score ceiling the driver reports. Marking a stitch
// mastered submits a perfect score; marking it for repeat submits half.
const DriverMaxScore = 20

// Options wires the app's dependencies.
type Options struct {
	Controller *helix.Controller
	Syncer     *syncer.Syncer
}

// Model is the root Bubble Tea model.
type Model struct {
	controller *helix.Controller
	syncer     *syncer.Syncer
	spin       spinner.Model

	width   int
	height  int
	lastMsg string
}

func newModel(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		controller: opts.Controller,
		syncer:     opts.Syncer,
		spin:       sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "m":
			return m.complete(DriverMaxScore), nil
		case "r":
			return m.complete(DriverMaxScore / 2), nil
		case "tab":
			next := m.controller.Advance()
			m.lastMsg = fmt.Sprintf("Skipped to tube %d", next)
			return m, nil
		}
	}
	return m, nil
}

func (m Model) complete(score int) Model {
	res, err := m.controller.CompleteReadyStitch(context.Background(), score, DriverMaxScore)
	switch {
	case err != nil:
		m.lastMsg = theme.Repeat.Render("error: " + err.Error())
	case res.Degraded:
		m.lastMsg = theme.Hint.Render(fmt.Sprintf("Tube was empty — moved on to tube %d", res.NextTube))
	case res.Mastered:
		m.lastMsg = theme.Mastered.Render(fmt.Sprintf(
			"Mastered %s — parked at position %d, next skip %d",
			res.Stitch.ID, res.Stitch.Position, res.Stitch.SkipDistance))
	default:
		m.lastMsg = theme.Repeat.Render(fmt.Sprintf("%s stays ready — skip reset to %d",
			res.Stitch.ID, res.Stitch.SkipDistance))
	}
	return m
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("Triple-Helix") + "\n\n")
	b.WriteString(m.renderTubes() + "\n\n")
	b.WriteString(m.renderReady() + "\n\n")

	if m.lastMsg != "" {
		b.WriteString(m.lastMsg + "\n\n")
	}
	if m.syncer != nil && m.syncer.Pending() > 0 {
		b.WriteString(m.spin.View() + theme.Hint.Render(
			fmt.Sprintf(" syncing %d change(s)", m.syncer.Pending())) + "\n\n")
	}

	b.WriteString(theme.Hint.Render("[m] mastered  [r] repeat  [tab] skip tube  [q] quit"))

	v.SetContent(lipgloss.NewStyle().Padding(1, 2).Render(b.String()))
	return v
}

func (m Model) renderTubes() string {
	parts := make([]string, 0, stitch.TubeCount)
	for t := stitch.Tube1; t <= stitch.Tube3; t++ {
		label := fmt.Sprintf("Tube %d", t)
		if t == m.controller.ActiveTube() {
			label = theme.TubeActive.Render("▶ " + label)
		} else {
			label = theme.TubeIdle.Render("  " + label)
		}
		parts = append(parts, label)
	}
	parts = append(parts, theme.Hint.Render(fmt.Sprintf("  cycle %d", m.controller.CycleCount())))
	return strings.Join(parts, "   ")
}

func (m Model) renderReady() string {
	s, err := m.controller.CurrentStitch()
	if err != nil {
		return theme.Card.Render(theme.Hint.Render("This tube has no ready stitch."))
	}
	body := fmt.Sprintf("%s  (thread %s)\nskip %d · level %d",
		s.ID, s.ThreadID, s.SkipDistance, s.Level)
	if len(s.Content) > 0 {
		payload := string(s.Content)
		if len(payload) > 120 {
			payload = payload[:120] + "…"
		}
		body += "\n" + theme.Hint.Render(payload)
	}
	return theme.Card.Render(theme.Body.Render(body))
}

// Run starts the session driver.
func Run(opts Options) error {
	if opts.Controller == nil {
		return fmt.Errorf("app: controller required")
	}
	p := tea.NewProgram(newModel(opts))
	_, err := p.Run()
	return err
}
