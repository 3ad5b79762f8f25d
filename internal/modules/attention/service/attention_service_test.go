package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tabclock/internal/modules/attention/domain"
	"tabclock/internal/modules/attention/service"
	"tabclock/internal/platform/browser"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *manualClock) Set(t time.Time) { c.now = t }

func newClock(t time.Time) *manualClock { return &manualClock{now: t} }

func noon() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local) }

func total(l *fakeLedger, host string) int64 { return l.ledger[host][domain.DayKey(noon())] }

type fakeLedger struct {
	ledger  domain.Ledger
	credits []domain.Credit
	err     error
}

func newLedger() *fakeLedger { return &fakeLedger{ledger: domain.Ledger{}} }

func (f *fakeLedger) Add(_ context.Context, c domain.Credit) error {
	if f.err != nil {
		return f.err
	}
	f.credits = append(f.credits, c)
	f.ledger.Add(c)
	return nil
}

func (f *fakeLedger) Load(context.Context) (domain.Ledger, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ledger, nil
}

type fakeEnv struct {
	windows []browser.Window
	tabs    map[string][]browser.Tab
	err     error
}

func (f *fakeEnv) Windows(context.Context) ([]browser.Window, error) { return f.windows, f.err }

func (f *fakeEnv) Tabs(_ context.Context, windowID string) ([]browser.Tab, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tabs[windowID], nil
}

func (f *fakeEnv) Tab(_ context.Context, tabID string) (browser.Tab, error) {
	if f.err != nil {
		return browser.Tab{}, f.err
	}
	for _, tabs := range f.tabs {
		for _, t := range tabs {
			if t.ID == tabID {
				return t, nil
			}
		}
	}
	return browser.Tab{}, errors.New("no such tab")
}

func focusedEnv(tabID, url string) *fakeEnv {
	return &fakeEnv{
		windows: []browser.Window{{ID: "w1", Focused: true}},
		tabs:    map[string][]browser.Tab{"w1": {{ID: tabID, WindowID: "w1", URL: url, Active: true}}},
	}
}

func newService(clk *manualClock, ledger *fakeLedger, env browser.Environment) *service.AttentionService {
	return service.NewAttentionService(clk, domain.DefaultPolicy(), ledger, env, nil)
}

func TestFocusThenSwitchCommitsElapsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))

	if err := svc.WindowFocusChanged(ctx, "w1"); err != nil {
		t.Fatalf("focus: %v", err)
	}
	clk.Advance(90 * time.Second)
	if err := svc.TabActivated(ctx, "2", "https://b.com"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	clk.Advance(30 * time.Second)
	if err := svc.WindowFocusChanged(ctx, ""); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := total(ledger, "a.com"); got != 90_000 {
		t.Fatalf("expected 90s on a.com, got %d", got)
	}
	if got := total(ledger, "b.com"); got != 30_000 {
		t.Fatalf("expected 30s on b.com, got %d", got)
	}
	if _, ok := svc.State().(domain.Unfocused); !ok {
		t.Fatalf("expected unfocused after blur, got %#v", svc.State())
	}
}

func TestCloseThenActivateDoesNotDoubleCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(10 * time.Second)

	if err := svc.TabRemoved(ctx, "1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.TabActivated(ctx, "2", "https://b.com"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(ledger.credits) != 1 || ledger.credits[0].Ms != 10_000 {
		t.Fatalf("expected exactly one 10s credit, got %+v", ledger.credits)
	}
	if seg, ok := domain.Running(svc.State()); !ok || seg.TabID != "2" {
		t.Fatalf("expected tracking on tab 2, got %#v", svc.State())
	}
}

func TestActivateLooksUpURLWhenMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	env := focusedEnv("1", "https://a.com")
	env.tabs["w1"] = append(env.tabs["w1"], browser.Tab{ID: "2", WindowID: "w1", URL: "https://b.com"})
	svc := newService(clk, newLedger(), env)
	_ = svc.WindowFocusChanged(ctx, "w1")
	if err := svc.TabActivated(ctx, "2", ""); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if seg, ok := domain.Running(svc.State()); !ok || seg.Domain != "b.com" {
		t.Fatalf("expected lookup to resolve b.com, got %#v", svc.State())
	}
	if err := svc.TabActivated(ctx, "404", ""); err != nil {
		t.Fatalf("activate unknown: %v", err)
	}
	if idle, ok := svc.State().(domain.Idle); !ok || idle.TabID != "404" {
		t.Fatalf("failed lookup should leave idle on the tab, got %#v", svc.State())
	}
}

func TestNavigateSwitchesDomain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com/start"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(5 * time.Second)
	if err := svc.TabUpdated(ctx, "1", ""); err != nil {
		t.Fatalf("title-only update: %v", err)
	}
	if len(ledger.credits) != 0 {
		t.Fatalf("title-only update must not commit")
	}
	if err := svc.TabUpdated(ctx, "1", "https://b.com"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	clk.Advance(5 * time.Second)
	if err := svc.TabUpdated(ctx, "9", "https://c.com"); err != nil {
		t.Fatalf("background navigate: %v", err)
	}
	_ = svc.WindowFocusChanged(ctx, "")
	if total(ledger, "a.com") != 5000 || total(ledger, "b.com") != 5000 || total(ledger, "c.com") != 0 {
		t.Fatalf("unexpected ledger %v", ledger.ledger)
	}
}

func TestUnfocusedTimeIsNeverCredited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	env := focusedEnv("1", "https://a.com")
	svc := newService(clk, ledger, env)
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(4 * time.Second)
	_ = svc.WindowFocusChanged(ctx, "")
	env.windows = []browser.Window{{ID: "w1"}}
	clk.Advance(10 * time.Minute)
	_ = svc.TabActivated(ctx, "1", "https://a.com")
	clk.Advance(10 * time.Second)
	_ = svc.Flush(ctx)
	if len(ledger.credits) != 1 || ledger.credits[0].Ms != 4000 {
		t.Fatalf("only the focused 4s may be credited, got %+v", ledger.credits)
	}
	if _, ok := svc.State().(domain.Unfocused); !ok {
		t.Fatalf("activation in a blurred browser must stay unfocused, got %#v", svc.State())
	}
}

func TestActivateWhileUnfocusedAsksEnvironment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	if err := svc.TabActivated(ctx, "1", "https://a.com"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	seg, ok := domain.Running(svc.State())
	if !ok || seg.TabID != "1" || seg.Domain != "a.com" || !seg.StartedAt.Equal(noon()) {
		t.Fatalf("expected tracking after activation in a focused window, got %#v", svc.State())
	}
	clk.Advance(45 * time.Second)
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if total(ledger, "a.com") != 45_000 {
		t.Fatalf("expected 45s on a.com, got %+v", ledger.credits)
	}
}

func TestTickRollsRunningSegment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	for i := 0; i < 4; i++ {
		clk.Advance(30 * time.Second)
		if err := svc.Tick(ctx); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if len(ledger.credits) != 4 || total(ledger, "a.com") != 120_000 {
		t.Fatalf("expected four 30s commits, got %+v", ledger.credits)
	}
	seg, ok := domain.Running(svc.State())
	if !ok || !seg.StartedAt.Equal(clk.Now()) {
		t.Fatalf("expected fresh segment at last tick, got %#v", svc.State())
	}
}

func TestTickRecoversFromEnvironment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	env := &fakeEnv{}
	svc := newService(clk, newLedger(), env)
	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("tick with empty env: %v", err)
	}
	if _, ok := svc.State().(domain.Unfocused); !ok {
		t.Fatalf("nothing found must leave state alone, got %#v", svc.State())
	}
	*env = *focusedEnv("7", "https://go.dev")
	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if seg, ok := domain.Running(svc.State()); !ok || seg.TabID != "7" || seg.Domain != "go.dev" {
		t.Fatalf("expected recovered segment, got %#v", svc.State())
	}
	env.err = errors.New("browser gone")
	_ = svc.WindowFocusChanged(ctx, "")
	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("lookup failures must be swallowed: %v", err)
	}
}

func TestFlushTwiceWithinASecondDoesNotDoubleCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(20 * time.Second)
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	clk.Advance(400 * time.Millisecond)
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if total(ledger, "a.com") != 20_000 {
		t.Fatalf("expected 20s after two flushes, got %d", total(ledger, "a.com"))
	}
	clk.Advance(1600 * time.Millisecond)
	_ = svc.Flush(ctx)
	if total(ledger, "a.com") != 22_000 {
		t.Fatalf("time under the minimum must carry into the next flush, got %d", total(ledger, "a.com"))
	}
}

func TestStaleSegmentIsDroppedWhole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local))
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(3 * time.Hour)
	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(ledger.credits) != 0 {
		t.Fatalf("sleep-length segment must be discarded, got %+v", ledger.credits)
	}
	clk.Advance(30 * time.Second)
	_ = svc.Tick(ctx)
	if len(ledger.credits) != 1 || ledger.credits[0].Ms != 30_000 {
		t.Fatalf("tracking must resume after discard, got %+v", ledger.credits)
	}
}

func TestMidnightCrossingCreditsOnlyToday(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(time.Date(2026, 3, 10, 23, 59, 0, 0, time.Local))
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Set(time.Date(2026, 3, 11, 0, 1, 0, 0, time.Local))
	_ = svc.Flush(ctx)
	if got := ledger.ledger["a.com"]["2026-03-11"]; got != 60_000 {
		t.Fatalf("expected 60000ms on the new day, got %d (%v)", got, ledger.ledger)
	}
	if _, ok := ledger.ledger["a.com"]["2026-03-10"]; ok {
		t.Fatalf("nothing may be credited to the previous day at commit time")
	}
}

func TestStoreFailureLosesOnlyThatSegment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	svc := newService(clk, ledger, focusedEnv("1", "https://a.com"))
	_ = svc.WindowFocusChanged(ctx, "w1")
	clk.Advance(10 * time.Second)
	ledger.err = errors.New("disk full")
	if err := svc.Tick(ctx); err == nil {
		t.Fatalf("expected commit error to surface")
	}
	if _, ok := domain.Running(svc.State()); !ok {
		t.Fatalf("tracking must continue after a failed write")
	}
	ledger.err = nil
	clk.Advance(10 * time.Second)
	_ = svc.Tick(ctx)
	if len(ledger.credits) != 1 || ledger.credits[0].Ms != 10_000 {
		t.Fatalf("expected only the second interval, got %+v", ledger.credits)
	}
}

func TestTimeData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(noon())
	ledger := newLedger()
	ledger.ledger.Add(domain.Credit{Domain: "a.com", Day: "2026-03-10", Ms: 3000})
	ledger.ledger.Add(domain.Credit{Domain: "a.com", Day: "2026-03-02", Ms: 3000})
	svc := newService(clk, ledger, nil)
	report, err := svc.TimeData(ctx, 7)
	if err != nil {
		t.Fatalf("time data: %v", err)
	}
	if report.TotalMs != 3000 || len(report.Buckets) != 7 {
		t.Fatalf("unexpected report %+v", report)
	}
	ledger.err = errors.New("locked")
	if _, err := svc.TimeData(ctx, 7); err == nil {
		t.Fatalf("expected load error")
	}
}
