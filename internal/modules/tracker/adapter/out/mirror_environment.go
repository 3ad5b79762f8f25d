package out

import (
	"context"
	"sort"
	"sync"

	"tabclock/internal/modules/tracker/dto"
	"tabclock/internal/platform/browser"
	apperrors "tabclock/internal/platform/errors"
)

// MirrorEnvironment answers environment lookups from the events the bridge
// has forwarded so far. It knows nothing until the first events arrive.
// Until a window_focus_changed event is seen, the window of the last
// activated tab counts as focused: a single-window browser may never report
// a focus change after the daemon restarts.
type MirrorEnvironment struct {
	mu         sync.RWMutex
	focused    string
	focusKnown bool
	windows    map[string]struct{}
	tabs       map[string]browser.Tab
}

func NewMirrorEnvironment() *MirrorEnvironment {
	return &MirrorEnvironment{windows: map[string]struct{}{}, tabs: map[string]browser.Tab{}}
}

func (m *MirrorEnvironment) Observe(event dto.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch event.Kind {
	case dto.KindTabCreated:
		tab := m.tabs[event.TabID]
		tab.ID = event.TabID
		if event.WindowID != "" {
			tab.WindowID = event.WindowID
			m.windows[event.WindowID] = struct{}{}
		}
		tab.URL = event.URL
		tab.Title = event.Title
		m.tabs[event.TabID] = tab
	case dto.KindTabActivated:
		tab := m.tabs[event.TabID]
		tab.ID = event.TabID
		if event.WindowID != "" {
			tab.WindowID = event.WindowID
			m.windows[event.WindowID] = struct{}{}
		}
		if event.URL != "" {
			tab.URL = event.URL
		}
		for id, other := range m.tabs {
			if other.WindowID == tab.WindowID && other.Active {
				other.Active = false
				m.tabs[id] = other
			}
		}
		tab.Active = true
		m.tabs[event.TabID] = tab
		if !m.focusKnown && tab.WindowID != "" {
			m.focused = tab.WindowID
		}
	case dto.KindTabUpdated:
		tab, ok := m.tabs[event.TabID]
		if !ok {
			tab = browser.Tab{ID: event.TabID}
		}
		if event.URL != "" {
			tab.URL = event.URL
		}
		if event.Title != "" {
			tab.Title = event.Title
		}
		m.tabs[event.TabID] = tab
	case dto.KindTabRemoved:
		delete(m.tabs, event.TabID)
	case dto.KindWindowFocusChanged:
		m.focused = event.WindowID
		m.focusKnown = true
		if event.WindowID != "" {
			m.windows[event.WindowID] = struct{}{}
		}
	case dto.KindBrowserClosing:
		m.focused = ""
		m.focusKnown = false
		m.windows = map[string]struct{}{}
		m.tabs = map[string]browser.Tab{}
	}
}

func (m *MirrorEnvironment) Windows(context.Context) ([]browser.Window, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]browser.Window, 0, len(m.windows))
	for id := range m.windows {
		out = append(out, browser.Window{ID: id, Focused: id == m.focused})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MirrorEnvironment) Tabs(_ context.Context, windowID string) ([]browser.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []browser.Tab{}
	for _, tab := range m.tabs {
		if tab.WindowID == windowID {
			out = append(out, tab)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MirrorEnvironment) Tab(_ context.Context, tabID string) (browser.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return browser.Tab{}, apperrors.ErrNotFound
	}
	return tab, nil
}
