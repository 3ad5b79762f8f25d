package out

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"tabclock/internal/platform/browser"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/logging"
)

const pageStateJS = `() => ({visible: document.visibilityState === "visible", focused: document.hasFocus()})`

// CDPEnvironment answers environment lookups from a running Chromium over
// the DevTools protocol. Window ids are browser window ids. A page takes the
// bridge's tab id when fallback knows exactly one tab with the same window
// and URL; otherwise it keeps its DevTools target id, and bridge events for
// that tab cannot match it until the next tick re-derives the foreground.
// When the browser cannot be reached the lookup is answered by fallback
// instead.
type CDPEnvironment struct {
	controlURL string
	fallback   browser.Environment
	logger     *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func NewCDPEnvironment(controlURL string, fallback browser.Environment, logger *slog.Logger) *CDPEnvironment {
	return &CDPEnvironment{controlURL: controlURL, fallback: fallback, logger: logging.OrDiscard(logger)}
}

func (e *CDPEnvironment) Windows(ctx context.Context) ([]browser.Window, error) {
	tabs, focused, err := e.scan(ctx, true)
	if err != nil {
		if e.fallback != nil {
			return e.fallback.Windows(ctx)
		}
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []browser.Window{}
	for _, tab := range tabs {
		if _, ok := seen[tab.WindowID]; ok {
			continue
		}
		seen[tab.WindowID] = struct{}{}
		_, isFocused := focused[tab.WindowID]
		out = append(out, browser.Window{ID: tab.WindowID, Focused: isFocused})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (e *CDPEnvironment) Tabs(ctx context.Context, windowID string) ([]browser.Tab, error) {
	tabs, _, err := e.scan(ctx, true)
	if err != nil {
		if e.fallback != nil {
			return e.fallback.Tabs(ctx, windowID)
		}
		return nil, err
	}
	out := []browser.Tab{}
	for _, tab := range tabs {
		if tab.WindowID == windowID {
			out = append(out, tab)
		}
	}
	return out, nil
}

func (e *CDPEnvironment) Tab(ctx context.Context, tabID string) (browser.Tab, error) {
	tabs, _, err := e.scan(ctx, false)
	if err != nil {
		if e.fallback != nil {
			return e.fallback.Tab(ctx, tabID)
		}
		return browser.Tab{}, err
	}
	for _, tab := range tabs {
		if tab.ID == tabID {
			return tab, nil
		}
	}
	if e.fallback != nil {
		return e.fallback.Tab(ctx, tabID)
	}
	return browser.Tab{}, apperrors.ErrNotFound
}

// scan lists page targets with their windows. With withState it also asks
// every page whether it is visible and focused; focused holds the ids of
// windows owning a focused page.
func (e *CDPEnvironment) scan(ctx context.Context, withState bool) ([]browser.Tab, map[string]struct{}, error) {
	b, err := e.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	res, err := proto.TargetGetTargets{}.Call(b)
	if err != nil {
		e.reset(err)
		return nil, nil, fmt.Errorf("list devtools targets: %w", err)
	}
	tabs := []browser.Tab{}
	focused := map[string]struct{}{}
	for _, info := range res.TargetInfos {
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		win, err := proto.BrowserGetWindowForTarget{TargetID: info.TargetID}.Call(b)
		if err != nil {
			continue
		}
		tab := browser.Tab{
			ID:       string(info.TargetID),
			WindowID: strconv.Itoa(int(win.WindowID)),
			URL:      info.URL,
			Title:    info.Title,
		}
		if withState {
			visible, hasFocus := e.pageState(ctx, b, info.TargetID)
			tab.Active = visible
			if visible && hasFocus {
				focused[tab.WindowID] = struct{}{}
			}
		}
		tabs = append(tabs, tab)
	}
	tabs = bridgeIDs(ctx, e.fallback, tabs)
	sort.Slice(tabs, func(i, j int) bool { return tabs[i].ID < tabs[j].ID })
	return tabs, focused, nil
}

// bridgeIDs renames DevTools pages to the tab ids known to known. A page is
// renamed only on an unambiguous window and URL match.
func bridgeIDs(ctx context.Context, known browser.Environment, tabs []browser.Tab) []browser.Tab {
	if known == nil {
		return tabs
	}
	byWindow := map[string][]browser.Tab{}
	for i, tab := range tabs {
		bridge, ok := byWindow[tab.WindowID]
		if !ok {
			bridge, _ = known.Tabs(ctx, tab.WindowID)
			byWindow[tab.WindowID] = bridge
		}
		match := ""
		for _, b := range bridge {
			if b.URL != tab.URL {
				continue
			}
			if match != "" {
				match = ""
				break
			}
			match = b.ID
		}
		if match != "" {
			tabs[i].ID = match
		}
	}
	return tabs
}

func (e *CDPEnvironment) pageState(ctx context.Context, b *rod.Browser, id proto.TargetTargetID) (visible, focused bool) {
	page, err := b.PageFromTarget(id)
	if err != nil {
		return false, false
	}
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{JS: pageStateJS, ByValue: true})
	if err != nil || res == nil || res.Value.Nil() {
		return false, false
	}
	return res.Value.Get("visible").Bool(), res.Value.Get("focused").Bool()
}

func (e *CDPEnvironment) connect(ctx context.Context) (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		return e.browser.Context(ctx), nil
	}
	if e.controlURL == "" {
		return nil, fmt.Errorf("devtools url is not configured")
	}
	u, err := launcher.ResolveURL(e.controlURL)
	if err != nil {
		return nil, fmt.Errorf("resolve devtools url: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect devtools: %w", err)
	}
	e.browser = b
	e.logger.Info("devtools connected", "url", u)
	return b.Context(ctx), nil
}

// reset drops the connection so the next lookup reconnects.
func (e *CDPEnvironment) reset(cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser == nil {
		return
	}
	e.browser = nil
	e.logger.Warn("devtools connection dropped", "error", cause)
}
