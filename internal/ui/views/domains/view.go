package domains

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	attentiondto "tabclock/internal/modules/attention/dto"
	"tabclock/internal/ui/theme"
)

const (
	MinDays = 1
	MaxDays = 366
)

// ─── port ────────────────────────────────────────────────────────────────────

type TimePort interface {
	TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Report attentiondto.TimeDataOutput
	Err    error
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    TimePort
	days    int
	report  attentiondto.TimeDataOutput
	err     error
	body    viewport.Model
	spinner spinner.Model
	loading bool
	width   int
	height  int
}

func New(port TimePort, days int) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Foreground(theme.Text).Padding(0, 1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		days:    clampDays(days),
		body:    vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.body.Width = msg.Width
		m.body.Height = msg.Height - 2
		m.body.SetContent(m.render())

	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			m.report = msg.Report
		}
		m.body.SetContent(m.render())

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading time data…")
	}
	header := theme.Title.Render(fmt.Sprintf("Domains — last %d day(s)", m.days))
	if m.report.From != "" {
		header += theme.Muted.Render(fmt.Sprintf("  %s → %s  total %s", m.report.From, m.report.To, FormatMs(m.report.TotalMs)))
	}
	return header + "\n\n" + m.body.View()
}

// Days is the size of the reporting window in local days.
func (m Model) Days() int { return m.days }

// SetDays changes the window and returns the command reloading it.
func (m *Model) SetDays(days int) tea.Cmd {
	m.days = clampDays(days)
	return m.Reload()
}

func (m Model) Reload() tea.Cmd {
	port, days := m.port, m.days
	return func() tea.Msg {
		if port == nil {
			return LoadedMsg{Err: fmt.Errorf("tracker is not available")}
		}
		report, err := port.TimeData(context.Background(), days)
		return LoadedMsg{Report: report, Err: err}
	}
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) render() string {
	if m.err != nil {
		return theme.Error.Render(m.err.Error())
	}
	if len(m.report.Totals) == 0 {
		return theme.Muted.Render("No time recorded in this window yet.")
	}
	nameW := 0
	for _, t := range m.report.Totals {
		nameW = max(nameW, lipgloss.Width(t.Domain))
	}
	nameW = min(nameW, 40)
	barW := max(m.width-nameW-16, 10)
	top := m.report.Totals[0].Ms

	var sb strings.Builder
	for _, t := range m.report.Totals {
		name := t.Domain
		if lipgloss.Width(name) > nameW {
			name = name[:nameW-1] + "…"
		}
		fill := 0
		if top > 0 {
			fill = int(int64(barW) * t.Ms / top)
		}
		sb.WriteString(fmt.Sprintf("%-*s ", nameW, name))
		sb.WriteString(theme.Bar.Render(strings.Repeat("█", fill)))
		sb.WriteString(strings.Repeat(" ", barW-fill))
		sb.WriteString(" " + FormatMs(t.Ms) + "\n")
	}
	return sb.String()
}

func clampDays(days int) int {
	if days < MinDays {
		return MinDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// FormatMs renders a millisecond total as h/m/s, dropping leading zero units.
func FormatMs(ms int64) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	h := int(d / time.Hour)
	mnt := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, mnt)
	case mnt > 0:
		return fmt.Sprintf("%dm%02ds", mnt, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
