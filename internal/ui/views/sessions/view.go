package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type SessionsPort interface {
	Sessions(ctx context.Context) (sessiondto.SessionsOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Sessions sessiondto.SessionsOutput
	Err      error
}

// ─── list item ───────────────────────────────────────────────────────────────

type sessionItem struct {
	id      string
	start   time.Time
	end     time.Time
	current bool
	tabs    []sessiondto.TabRecordOutput
	count   int
}

func (i sessionItem) Title() string {
	if i.current {
		return "● current  " + i.start.Format("Jan 2 15:04")
	}
	return i.start.Format("Jan 2 15:04") + " – " + i.end.Format("15:04")
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("%d tab(s)  %s", i.count, i.id)
}

func (i sessionItem) FilterValue() string {
	var sb strings.Builder
	sb.WriteString(i.id)
	for _, t := range i.tabs {
		sb.WriteString(" " + t.Domain)
	}
	return sb.String()
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    SessionsPort
	list    list.Model
	detail  viewport.Model
	limit   int
	loading bool
	width   int
	height  int
}

func New(port SessionsPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Sessions"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	return Model{port: port, list: l, detail: vp, loading: true}
}

func (m Model) Init() tea.Cmd {
	return m.Reload()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Sessions — " + msg.Err.Error()
			return m, nil
		}
		m.limit = msg.Sessions.MaxSessions
		m.list.Title = fmt.Sprintf("Sessions (keep %d)", m.limit)
		cmds = append(cmds, m.list.SetItems(Items(msg.Sessions)))
		m.detail.SetContent(m.renderDetail())
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.detail.SetContent(m.renderDetail())
		}

		var vCmd tea.Cmd
		m.detail, vCmd = m.detail.Update(msg)
		cmds = append(cmds, vCmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			theme.Muted.Render("Loading sessions…"))
	}
	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Reload() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		if port == nil {
			return LoadedMsg{Err: fmt.Errorf("tracker is not available")}
		}
		out, err := port.Sessions(context.Background())
		return LoadedMsg{Sessions: out, Err: err}
	}
}

// Items lists the current session first, then the archive newest first.
func Items(out sessiondto.SessionsOutput) []list.Item {
	items := make([]list.Item, 0, len(out.Sessions)+1)
	if cur := out.Current; cur != nil {
		items = append(items, sessionItem{id: cur.ID, start: cur.Start, current: true, tabs: cur.Tabs, count: uniqueURLs(cur.Tabs)})
	}
	for _, s := range out.Sessions {
		items = append(items, sessionItem{id: s.ID, start: s.Start, end: s.End, tabs: s.Tabs, count: s.TabCount})
	}
	return items
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.detail.Width = detailW - 4
	m.detail.Height = m.height - 4
}

func (m Model) renderDetail() string {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok {
		return theme.Muted.Render("No sessions recorded yet.")
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(item.id) + "\n\n")
	sb.WriteString(theme.Muted.Render("start: ") + item.start.Format(time.DateTime) + "\n")
	if !item.current {
		sb.WriteString(theme.Muted.Render("end:   ") + item.end.Format(time.DateTime) + "\n")
	}
	sb.WriteString("\n")
	for _, t := range item.tabs {
		mark := theme.Hot.Render("●")
		if t.Closed != nil {
			mark = theme.Muted.Render("○")
		}
		title := t.Title
		if title == "" {
			title = t.URL
		}
		sb.WriteString(fmt.Sprintf("%s %s\n  %s", mark, title, theme.Muted.Render(t.Domain)))
		if t.OpenMs > 0 {
			sb.WriteString(theme.Muted.Render(fmt.Sprintf("  open %s", (time.Duration(t.OpenMs) * time.Millisecond).Round(time.Second))))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func uniqueURLs(tabs []sessiondto.TabRecordOutput) int {
	seen := map[string]struct{}{}
	for _, t := range tabs {
		if t.URL != "" {
			seen[t.URL] = struct{}{}
		}
	}
	return len(seen)
}
