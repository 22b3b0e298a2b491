// Package tui provides the Bubble Tea memory-training interface.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/codemem/internal/model"
	"github.com/verte-zerg/codemem/internal/score"
	"github.com/verte-zerg/codemem/internal/session"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	inputCharLimit      = 2 * model.SequenceLength
	maxBestRows         = model.SequenceLength
)

type tickMsg time.Time

// Model renders session snapshots and forwards key events to the session.
type Model struct {
	session     *session.Machine
	snap        model.Snapshot
	unsubscribe func()

	tickInterval time.Duration
	groupSize    int
	ticking      bool
	confirmReset bool

	input textinput.Model

	width  int
	height int
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	sequenceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

// NewModel constructs a TUI model bound to s.
func NewModel(cfg model.Config, s *session.Machine) *Model {
	input := textinput.New()
	input.Placeholder = "Enter the sequence"
	input.Prompt = "> "
	input.CharLimit = inputCharLimit
	input.Width = inputCharLimit

	m := &Model{
		session:      s,
		snap:         s.Snapshot(),
		tickInterval: cfg.TickInterval,
		groupSize:    cfg.GroupSize,
		input:        input,
	}
	if m.tickInterval <= 0 {
		m.tickInterval = defaultTickInterval
	}
	m.unsubscribe = s.Subscribe(func(snap model.Snapshot) {
		m.snap = snap
	})
	return m
}

// Close detaches the model from the session.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.ticking = m.session.Tick()
		if m.ticking {
			return m, m.tick()
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	default:
		if m.snap.Phase == model.PhaseRecall {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmReset {
		m.confirmReset = false
		if msg.String() == "y" || msg.String() == "Y" {
			m.session.ResetLedger(context.Background())
		}
		return m, nil
	}

	switch m.snap.Phase {
	case model.PhaseInstructions:
		switch msg.String() {
		case "enter", " ":
			return m, m.advance()
		case "r":
			if len(m.snap.BestScores) > 0 {
				m.confirmReset = true
			}
			return m, nil
		case "q", "esc":
			return m, tea.Quit
		}
	case model.PhaseRecall:
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.advance()
		case tea.KeyEsc:
			m.home()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		digits := score.DigitsOnly(m.input.Value())
		if digits != m.input.Value() {
			m.input.SetValue(digits)
		}
		m.session.EditInput(digits)
		return m, cmd
	default:
		switch msg.String() {
		case "enter", " ":
			return m, m.advance()
		case "esc", "h":
			m.home()
			return m, nil
		case "q":
			if m.snap.Phase == model.PhaseResult {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) advance() tea.Cmd {
	m.session.Advance(context.Background())
	var cmds []tea.Cmd
	if m.snap.Phase == model.PhaseRecall {
		m.input.SetValue("")
		cmds = append(cmds, m.input.Focus())
	} else {
		m.input.Blur()
	}
	if m.snap.Phase.Timed() && !m.ticking {
		m.ticking = true
		cmds = append(cmds, m.tick())
	}
	return tea.Batch(cmds...)
}

func (m *Model) home() {
	m.session.Home()
	m.input.Blur()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.snap.Phase {
	case model.PhaseInstructions:
		content = m.renderInstructions()
	case model.PhaseMemorize:
		content = m.renderMemorize()
	case model.PhaseRecall:
		content = m.renderRecall()
	case model.PhaseResult:
		content = m.renderResult()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderInstructions() string {
	lines := []string{
		titleStyle.Render("Welcome to Code Memory!"),
		"",
		textStyle.Render(fmt.Sprintf("Press enter to start memorizing a sequence of %d digits.", model.SequenceLength)),
		textStyle.Render("When you're ready to recall, press enter again and type the sequence."),
		textStyle.Render("Correct digits are shown in green, incorrect in red. Press enter to play again."),
	}
	if len(m.snap.BestScores) > 0 {
		lines = append(lines, "", textStyle.Render("Best Scores:"), m.renderBestTable())
	}
	if m.confirmReset {
		lines = append(lines, "", warnStyle.Render("Reset all best scores? (y/N)"))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderBestTable() string {
	counts := make([]int, 0, len(m.snap.BestScores))
	for c := range m.snap.BestScores {
		counts = append(counts, c)
	}
	sort.Ints(counts)
	if len(counts) > maxBestRows {
		counts = counts[:maxBestRows]
	}
	rows := make([]table.Row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d digits", c),
			fmt.Sprintf("%dms", m.snap.BestScores[c]),
		})
	}
	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Correct", Width: 10},
			{Title: "Best", Width: 10},
		}),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithStyles(styles),
	)
	return t.View()
}

func (m *Model) renderMemorize() string {
	seq := wrapStyledRunes(buildSequenceRunes(m.snap.Sequence, m.groupSize, sequenceStyle), m.contentWidth())
	return lipgloss.JoinVertical(lipgloss.Center,
		seq,
		"",
		textStyle.Render(fmt.Sprintf("Elapsed Time: %dms", m.snap.ElapsedMs)),
	)
}

func (m *Model) renderRecall() string {
	return lipgloss.JoinVertical(lipgloss.Center,
		m.input.View(),
		"",
		textStyle.Render(fmt.Sprintf("Elapsed Time: %dms", m.snap.ElapsedMs)),
	)
}

func (m *Model) renderResult() string {
	width := m.contentWidth()
	lines := []string{
		wrapStyledRunes(buildResultRunes(m.snap.Input, m.snap.Marks, m.groupSize), width),
		"",
		wrapStyledRunes(buildSequenceRunes(m.snap.Sequence, m.groupSize, sequenceStyle), width),
		"",
		textStyle.Render(fmt.Sprintf("Last Score: %dms", m.snap.LastScore)),
		textStyle.Render(fmt.Sprintf("Correct: %d/%d", m.snap.Correct, model.SequenceLength)),
	}
	if best, ok := m.snap.BestForCorrect(); ok {
		lines = append(lines, textStyle.Render(fmt.Sprintf("Best Time for %d digits: %dms", m.snap.Correct, best)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.snap.Phase {
	case model.PhaseInstructions:
		segments = []string{"enter start"}
		if len(m.snap.BestScores) > 0 {
			segments = append(segments, "r reset best scores")
		}
		segments = append(segments, "q quit")
	case model.PhaseMemorize:
		segments = []string{"enter recall", "esc home"}
	case model.PhaseRecall:
		segments = []string{"enter submit", "esc home"}
	case model.PhaseResult:
		segments = []string{"enter play again", "esc home", "q quit"}
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(int(float64(m.width)*0.70), 1)
}
