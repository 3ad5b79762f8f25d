package domain

import (
	"time"

	"tabclock/internal/platform/browser"
)

// Segment is one continuous interval during which a tab+domain is believed
// to be the user's focused tab. It lives only in memory.
type Segment struct {
	TabID     string    `json:"tab_id"`
	Domain    string    `json:"domain"`
	StartedAt time.Time `json:"started_at"`
}

// State is the tracker's foreground state. Only Tracking carries a start
// time, so an unfocused tracker cannot hold a running segment.
type State interface {
	isState()
}

// Unfocused: no browser window has focus. This is the state at process start.
type Unfocused struct{}

// Idle: a window is focused but its foreground tab (TabID, possibly empty)
// is not trackable.
type Idle struct {
	TabID string
}

// Tracking: a focused, trackable tab is accumulating time.
type Tracking struct {
	Segment Segment
}

func (Unfocused) isState() {}
func (Idle) isState()      {}
func (Tracking) isState()  {}

// ActiveTab returns the tab the state believes is foreground.
func ActiveTab(s State) string {
	switch st := s.(type) {
	case Tracking:
		return st.Segment.TabID
	case Idle:
		return st.TabID
	default:
		return ""
	}
}

// Running returns the live segment, if any.
func Running(s State) (Segment, bool) {
	if st, ok := s.(Tracking); ok {
		return st.Segment, true
	}
	return Segment{}, false
}

// The transitions below are pure. Each returns the next state and the
// segment that was closed by the transition (nil when none). Callers must
// install the next state before persisting the closed segment.

// Activate handles the user switching to tabID.
func Activate(s State, tabID, url string, now time.Time) (State, *Segment) {
	closed := closing(s)
	if _, unfocused := s.(Unfocused); unfocused {
		return Unfocused{}, closed
	}
	return foreground(tabID, url, now), closed
}

// Navigate handles a URL change. Only the foreground tab is affected.
func Navigate(s State, tabID, url string, now time.Time) (State, *Segment) {
	if tabID == "" || ActiveTab(s) != tabID {
		return s, nil
	}
	return foreground(tabID, url, now), closing(s)
}

// Close handles the foreground tab being removed.
func Close(s State, tabID string) (State, *Segment) {
	if tabID == "" || ActiveTab(s) != tabID {
		return s, nil
	}
	return Idle{}, closing(s)
}

// Blur handles focus moving to no browser window.
func Blur(s State) (State, *Segment) {
	return Unfocused{}, closing(s)
}

// Focus handles a window gaining focus with tabID as its active tab.
func Focus(s State, tabID, url string, now time.Time) (State, *Segment) {
	return foreground(tabID, url, now), closing(s)
}

// Roll closes the running segment and immediately reopens it on the same
// tab and domain starting at now.
func Roll(s State, now time.Time) (State, *Segment) {
	st, ok := s.(Tracking)
	if !ok {
		return s, nil
	}
	closed := st.Segment
	return Tracking{Segment: Segment{TabID: closed.TabID, Domain: closed.Domain, StartedAt: now}}, &closed
}

func foreground(tabID, url string, now time.Time) State {
	domain := browser.DomainOf(url)
	if tabID == "" || domain == "" {
		return Idle{TabID: tabID}
	}
	return Tracking{Segment: Segment{TabID: tabID, Domain: domain, StartedAt: now}}
}

func closing(s State) *Segment {
	if st, ok := s.(Tracking); ok {
		seg := st.Segment
		return &seg
	}
	return nil
}
