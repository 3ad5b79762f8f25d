package dto

import (
	"fmt"
	"time"

	attentiondto "tabclock/internal/modules/attention/dto"
	apperrors "tabclock/internal/platform/errors"
)

type Kind string

const (
	KindTabActivated       Kind = "tab_activated"
	KindTabUpdated         Kind = "tab_updated"
	KindTabCreated         Kind = "tab_created"
	KindTabRemoved         Kind = "tab_removed"
	KindWindowFocusChanged Kind = "window_focus_changed"
	KindBrowserStarted     Kind = "browser_started"
	KindBrowserClosing     Kind = "browser_closing"
)

// Kinds lists every accepted event kind.
var Kinds = []Kind{
	KindTabActivated,
	KindTabUpdated,
	KindTabCreated,
	KindTabRemoved,
	KindWindowFocusChanged,
	KindBrowserStarted,
	KindBrowserClosing,
}

// Event is one browser lifecycle notification forwarded by the bridge.
// An empty WindowID on window_focus_changed means focus left the browser.
type Event struct {
	Kind     Kind   `json:"kind"`
	TabID    string `json:"tab_id,omitempty"`
	WindowID string `json:"window_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
}

func (e Event) Validate() error {
	switch e.Kind {
	case KindTabActivated, KindTabUpdated, KindTabCreated, KindTabRemoved:
		if e.TabID == "" {
			return fmt.Errorf("%w: %s requires tab_id", apperrors.ErrInvalidInput, e.Kind)
		}
	case KindWindowFocusChanged, KindBrowserStarted, KindBrowserClosing:
	default:
		return fmt.Errorf("%w: unknown event kind %q", apperrors.ErrInvalidInput, e.Kind)
	}
	return nil
}

type SessionSummary struct {
	ID    string    `json:"session_id" yaml:"session_id"`
	Start time.Time `json:"start" yaml:"start"`
	Tabs  int       `json:"tabs" yaml:"tabs"`
}

type StatusOutput struct {
	Attention  attentiondto.StateOutput `json:"attention" yaml:"attention"`
	Session    *SessionSummary          `json:"session,omitempty" yaml:"session,omitempty"`
	StartedAt  time.Time                `json:"started_at" yaml:"started_at"`
	LastTickAt time.Time                `json:"last_tick_at,omitempty" yaml:"last_tick_at,omitempty"`
	Events     uint64                   `json:"events" yaml:"events"`
	Failures   uint64                   `json:"failures" yaml:"failures"`
}

type DaemonStatusOutput struct {
	Running    bool          `json:"running" yaml:"running"`
	PID        int           `json:"pid" yaml:"pid"`
	SocketPath string        `json:"socket_path" yaml:"socket_path"`
	Status     *StatusOutput `json:"status,omitempty" yaml:"status,omitempty"`
}
