package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	trackerdto "tabclock/internal/modules/tracker/dto"
	"tabclock/internal/ui/components"
	"tabclock/internal/ui/theme"
	domainsview "tabclock/internal/ui/views/domains"
	sessionsview "tabclock/internal/ui/views/sessions"
)

const refreshInterval = 5 * time.Second

// ─── ports ───────────────────────────────────────────────────────────────────

type trackerPort interface {
	DaemonStatus(ctx context.Context) (trackerdto.DaemonStatusOutput, error)
	Flush(ctx context.Context) error
	TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error)
	Sessions(ctx context.Context) (sessiondto.SessionsOutput, error)
	SetMaxSessions(ctx context.Context, n int) (int, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabDomains tabID = iota
	tabSessions
	tabCount
)

var tabLabels = [tabCount]string{"Domains", "Sessions"}

// ─── async messages ──────────────────────────────────────────────────────────

type statusLoadedMsg struct {
	status trackerdto.DaemonStatusOutput
	err    error
}

type flushedMsg struct{ err error }

type refreshMsg time.Time

type maxSessionsMsg struct {
	n   int
	err error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Quit    key.Binding
	Flush   key.Binding
	Refresh key.Binding
	Wider   key.Binding
	Narrow  key.Binding
	Palette key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Flush:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flush")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Wider:   key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "days")),
		Narrow:  key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "days")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Flush, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Wider},
		{k.Flush, k.Refresh, k.Palette},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the live dashboard over a running daemon. It polls the daemon and
// never mutates tracker state beyond asking for a flush.
type Model struct {
	tracker trackerPort

	domainsView  domainsview.Model
	sessionsView sessionsview.Model
	palette      components.Palette

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	daemon    trackerdto.DaemonStatusOutput
	status    string
	width     int
	height    int
}

func NewModel(tracker trackerPort, days int) Model {
	return Model{
		tracker:      tracker,
		domainsView:  domainsview.New(tracker, days),
		sessionsView: sessionsview.New(tracker),
		palette:      components.NewPalette(),
		activeTab:    tabDomains,
		keys:         defaultKeys(),
		help:         help.New(),
		status:       "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.domainsView.Init(),
		m.sessionsView.Init(),
		m.loadStatusCmd(),
		refreshCmd(),
	)
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.width
		m.palette.SetWidth(min(m.width, 60))
		m.propagateSize()
		return m, nil

	case statusLoadedMsg:
		m.daemon = msg.status
		switch {
		case msg.err != nil:
			m.status = "status: " + msg.err.Error()
		case !msg.status.Running:
			m.status = "daemon not running"
		default:
			m.status = fmt.Sprintf("pid %d", msg.status.PID)
		}
		return m, nil

	case flushedMsg:
		if msg.err != nil {
			m.status = "flush failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "flushed"
		return m, m.reloadAll()

	case components.PaletteSubmitMsg:
		return m.execute(msg.Input)

	case components.PaletteCancelMsg:
		return m, nil

	case maxSessionsMsg:
		if msg.err != nil {
			m.status = "max-sessions failed: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("keeping %d sessions", msg.n)
		return m, m.sessionsView.Reload()

	case refreshMsg:
		return m, tea.Batch(m.reloadAll(), refreshCmd())

	case domainsview.LoadedMsg:
		var cmd tea.Cmd
		m.domainsView, cmd = m.domainsView.Update(msg)
		return m, cmd

	case sessionsview.LoadedMsg:
		var cmd tea.Cmd
		m.sessionsView, cmd = m.sessionsView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.palette.Visible() {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabSessions && m.sessionsView.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case msg.String() == "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Flush):
			m.status = "flushing"
			return m, m.flushCmd()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.reloadAll()
		case key.Matches(msg, m.keys.Wider):
			return m, m.domainsView.SetDays(nextDays(m.domainsView.Days(), 1))
		case key.Matches(msg, m.keys.Narrow):
			return m, m.domainsView.SetDays(nextDays(m.domainsView.Days(), -1))
		}
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabDomains:
		m.domainsView, tabCmd = m.domainsView.Update(msg)
	case tabSessions:
		m.sessionsView, tabCmd = m.sessionsView.Update(msg)
	}
	cmds = append(cmds, tabCmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.activeTab == tabSessions:
		content = m.sessionsView.View()
	default:
		content = m.domainsView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	bar := "tabclock  " + strings.Join(parts, theme.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if st := m.daemon.Status; st != nil {
		style, ok := theme.State[st.Attention.State]
		if !ok {
			style = theme.Muted
		}
		badge := style.Render("● " + st.Attention.State)
		if st.Attention.Domain != "" {
			badge += " " + st.Attention.Domain
		}
		left = badge + "  " + left
	}
	right := theme.Muted.Render("?:help  ::command  tab:switch  f:flush  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.domainsView, _ = m.domainsView.Update(sz)
	m.sessionsView, _ = m.sessionsView.Update(sz)
}

func (m Model) reloadAll() tea.Cmd {
	return tea.Batch(m.loadStatusCmd(), m.domainsView.Reload(), m.sessionsView.Reload())
}

func (m Model) execute(input string) (tea.Model, tea.Cmd) {
	cmd, err := components.ParseCommand(input)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	switch cmd.Name {
	case "flush":
		m.status = "flushing"
		return m, m.flushCmd()
	case "refresh":
		return m, m.reloadAll()
	case "quit":
		return m, tea.Quit
	case "days":
		return m, m.domainsView.SetDays(cmd.N)
	case "max-sessions":
		return m, m.maxSessionsCmd(cmd.N)
	}
	return m, nil
}

// nextDays steps through the usual report windows.
func nextDays(days, dir int) int {
	steps := []int{1, 7, 30, 90, 366}
	if dir > 0 {
		for _, s := range steps {
			if s > days {
				return s
			}
		}
		return steps[len(steps)-1]
	}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i] < days {
			return steps[i]
		}
	}
	return steps[0]
}

// ─── async commands ──────────────────────────────────────────────────────────

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) loadStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.tracker.DaemonStatus(context.Background())
		return statusLoadedMsg{status: status, err: err}
	}
}

func (m Model) maxSessionsCmd(n int) tea.Cmd {
	return func() tea.Msg {
		applied, err := m.tracker.SetMaxSessions(context.Background(), n)
		return maxSessionsMsg{n: applied, err: err}
	}
}

func (m Model) flushCmd() tea.Cmd {
	return func() tea.Msg {
		return flushedMsg{err: m.tracker.Flush(context.Background())}
	}
}
