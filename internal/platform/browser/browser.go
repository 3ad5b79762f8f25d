// Package browser holds the vocabulary shared by every module that reasons
// about tabs and windows: environment lookups and URL trackability.
package browser

import "context"

type Window struct {
	ID      string `json:"id"`
	Focused bool   `json:"focused"`
}

type Tab struct {
	ID       string `json:"id"`
	WindowID string `json:"window_id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
}

// Environment answers recovery lookups against the live browser. Callers
// treat any error as "nothing found".
type Environment interface {
	Windows(ctx context.Context) ([]Window, error)
	Tabs(ctx context.Context, windowID string) ([]Tab, error)
	Tab(ctx context.Context, tabID string) (Tab, error)
}

// FocusedTab resolves the active tab of the focused window.
func FocusedTab(ctx context.Context, env Environment) (Tab, bool) {
	if env == nil {
		return Tab{}, false
	}
	windows, err := env.Windows(ctx)
	if err != nil {
		return Tab{}, false
	}
	for _, w := range windows {
		if !w.Focused {
			continue
		}
		return ActiveTab(ctx, env, w.ID)
	}
	return Tab{}, false
}

// ActiveTab resolves the active tab of one window.
func ActiveTab(ctx context.Context, env Environment, windowID string) (Tab, bool) {
	if env == nil || windowID == "" {
		return Tab{}, false
	}
	tabs, err := env.Tabs(ctx, windowID)
	if err != nil {
		return Tab{}, false
	}
	for _, t := range tabs {
		if t.Active {
			return t, true
		}
	}
	return Tab{}, false
}

// OpenTabs lists every tab of every window. Windows whose tabs cannot be
// listed are skipped.
func OpenTabs(ctx context.Context, env Environment) []Tab {
	if env == nil {
		return nil
	}
	windows, err := env.Windows(ctx)
	if err != nil {
		return nil
	}
	out := []Tab{}
	for _, w := range windows {
		tabs, err := env.Tabs(ctx, w.ID)
		if err != nil {
			continue
		}
		out = append(out, tabs...)
	}
	return out
}
