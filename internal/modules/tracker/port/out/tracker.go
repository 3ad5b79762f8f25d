package out

import (
	"context"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
)

type DaemonStore interface {
	WritePID(ctx context.Context, pid int) error
	ReadPID(ctx context.Context) (int, error)
	ClearPID(ctx context.Context) error
	SocketPath() string
	LogPath() string
}

// EventMirror observes every dispatched event before it is routed, so an
// environment built from the event stream stays current.
type EventMirror interface {
	Observe(event dto.Event)
}

// IPCServer serves the local JSON-RPC daemon API.
type IPCServer interface {
	Serve(ctx context.Context, socketPath string, handler IPCHandler) error
}

// EventSink accepts one browser event at a time.
type EventSink interface {
	Event(ctx context.Context, event dto.Event) error
}

// EventServer accepts events from browser extensions over the network.
type EventServer interface {
	Serve(ctx context.Context, addr string, sink EventSink) error
}

// IPCClient talks to the local daemon JSON-RPC API.
type IPCClient interface {
	Event(ctx context.Context, socketPath string, event dto.Event) error
	Flush(ctx context.Context, socketPath string) error
	TimeData(ctx context.Context, socketPath string, days int) (attentiondto.TimeDataOutput, error)
	Sessions(ctx context.Context, socketPath string) (sessiondto.SessionsOutput, error)
	SetMaxSessions(ctx context.Context, socketPath string, n int) (int, error)
	Status(ctx context.Context, socketPath string) (dto.StatusOutput, error)
	Stop(ctx context.Context, socketPath string) error
}

type IPCHandler interface {
	Event(ctx context.Context, event dto.Event) error
	Flush(ctx context.Context) error
	TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error)
	Sessions(ctx context.Context) (sessiondto.SessionsOutput, error)
	SetMaxSessions(ctx context.Context, n int) (int, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	Stop(ctx context.Context) error
}
