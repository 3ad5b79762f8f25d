package out_test

import (
	"context"
	"errors"
	"testing"

	out "tabclock/internal/modules/tracker/adapter/out"
	"tabclock/internal/modules/tracker/dto"
	"tabclock/internal/platform/browser"
	apperrors "tabclock/internal/platform/errors"
)

func TestMirrorTracksFocusedActiveTab(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := out.NewMirrorEnvironment()
	env.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "1", WindowID: "w1", URL: "https://a.com/", Title: "A"})
	env.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "2", WindowID: "w1", URL: "https://b.com/", Title: "B"})
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "1", WindowID: "w1"})
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "2", WindowID: "w1"})
	env.Observe(dto.Event{Kind: dto.KindWindowFocusChanged, WindowID: "w1"})

	tab, ok := browser.FocusedTab(ctx, env)
	if !ok || tab.ID != "2" || tab.URL != "https://b.com/" {
		t.Fatalf("unexpected focused tab: %+v ok=%v", tab, ok)
	}
	tabs, _ := env.Tabs(ctx, "w1")
	active := 0
	for _, tb := range tabs {
		if tb.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active tab per window, got %d", active)
	}

	env.Observe(dto.Event{Kind: dto.KindWindowFocusChanged})
	if _, ok := browser.FocusedTab(ctx, env); ok {
		t.Fatalf("blurred browser must have no focused tab")
	}
}

func TestMirrorUpdatesAndRemoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := out.NewMirrorEnvironment()
	env.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "1", WindowID: "w1", URL: "https://a.com/", Title: "A"})
	env.Observe(dto.Event{Kind: dto.KindTabUpdated, TabID: "1", URL: "https://c.com/"})

	tab, err := env.Tab(ctx, "1")
	if err != nil || tab.URL != "https://c.com/" || tab.Title != "A" {
		t.Fatalf("unexpected tab after update: %+v %v", tab, err)
	}
	env.Observe(dto.Event{Kind: dto.KindTabRemoved, TabID: "1"})
	if _, err := env.Tab(ctx, "1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMirrorForgetsEverythingOnBrowserClosing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := out.NewMirrorEnvironment()
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "1", WindowID: "w1", URL: "https://a.com/"})
	env.Observe(dto.Event{Kind: dto.KindWindowFocusChanged, WindowID: "w1"})
	env.Observe(dto.Event{Kind: dto.KindBrowserClosing})

	windows, _ := env.Windows(ctx)
	if len(windows) != 0 {
		t.Fatalf("expected no windows, got %+v", windows)
	}
	if tabs := browser.OpenTabs(ctx, env); len(tabs) != 0 {
		t.Fatalf("expected no tabs, got %+v", tabs)
	}
}

func TestCDPEnvironmentFallsBackWhenUnconfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mirror := out.NewMirrorEnvironment()
	mirror.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "1", WindowID: "w1", URL: "https://a.com/"})
	mirror.Observe(dto.Event{Kind: dto.KindWindowFocusChanged, WindowID: "w1"})

	env := out.NewCDPEnvironment("", mirror, nil)
	tab, ok := browser.FocusedTab(ctx, env)
	if !ok || tab.ID != "1" {
		t.Fatalf("expected fallback focused tab, got %+v ok=%v", tab, ok)
	}
	if _, err := out.NewCDPEnvironment("", nil, nil).Windows(ctx); err == nil {
		t.Fatalf("expected error without devtools url or fallback")
	}
}

func TestMirrorAssumesActivatedWindowFocusedUntilTold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := out.NewMirrorEnvironment()
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "1", WindowID: "w1", URL: "https://a.com/"})

	tab, ok := browser.FocusedTab(ctx, env)
	if !ok || tab.ID != "1" {
		t.Fatalf("expected w1 to count as focused before any focus event, got %+v ok=%v", tab, ok)
	}

	env.Observe(dto.Event{Kind: dto.KindWindowFocusChanged})
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "2", WindowID: "w1", URL: "https://b.com/"})
	if _, ok := browser.FocusedTab(ctx, env); ok {
		t.Fatalf("an explicit blur must win over tab activations")
	}

	env.Observe(dto.Event{Kind: dto.KindBrowserClosing})
	env.Observe(dto.Event{Kind: dto.KindTabActivated, TabID: "3", WindowID: "w2", URL: "https://c.com/"})
	if tab, ok := browser.FocusedTab(ctx, env); !ok || tab.ID != "3" {
		t.Fatalf("a new browser run should start without known focus, got %+v ok=%v", tab, ok)
	}
}

func TestCDPPagesTakeBridgeTabIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mirror := out.NewMirrorEnvironment()
	mirror.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "11", WindowID: "1", URL: "https://a.com/"})
	mirror.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "12", WindowID: "1", URL: "https://dup.com/"})
	mirror.Observe(dto.Event{Kind: dto.KindTabCreated, TabID: "13", WindowID: "1", URL: "https://dup.com/"})

	pages := []browser.Tab{
		{ID: "T-A", WindowID: "1", URL: "https://a.com/"},
		{ID: "T-D", WindowID: "1", URL: "https://dup.com/"},
		{ID: "T-X", WindowID: "2", URL: "https://a.com/"},
	}
	got := out.BridgeIDs(ctx, mirror, pages)
	if got[0].ID != "11" {
		t.Fatalf("expected unique match to take bridge id, got %+v", got[0])
	}
	if got[1].ID != "T-D" {
		t.Fatalf("ambiguous URL must keep the target id, got %+v", got[1])
	}
	if got[2].ID != "T-X" {
		t.Fatalf("other windows must not match, got %+v", got[2])
	}
	if same := out.BridgeIDs(ctx, nil, []browser.Tab{{ID: "T-A", WindowID: "1", URL: "https://a.com/"}}); same[0].ID != "T-A" {
		t.Fatalf("without a fallback ids are left alone, got %+v", same)
	}
}
