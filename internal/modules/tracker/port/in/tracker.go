package in

import (
	"context"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
)

type Usecase interface {
	RunDaemon(ctx context.Context) error
	StartDaemon(ctx context.Context) error
	StopDaemon(ctx context.Context) error
	DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error)
	DaemonLogs(ctx context.Context, tail int) (string, error)

	SendEvent(ctx context.Context, event dto.Event) error
	Flush(ctx context.Context) error
	TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error)
	Sessions(ctx context.Context) (sessiondto.SessionsOutput, error)
	SetMaxSessions(ctx context.Context, n int) (int, error)
}
