package in

import (
	"context"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
	trackerin "tabclock/internal/modules/tracker/port/in"
)

type CLIHandler struct {
	usecase trackerin.Usecase
}

func NewCLIHandler(usecase trackerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) RunDaemon(ctx context.Context) error {
	return h.usecase.RunDaemon(ctx)
}

func (h CLIHandler) StartDaemon(ctx context.Context) error {
	return h.usecase.StartDaemon(ctx)
}

func (h CLIHandler) StopDaemon(ctx context.Context) error {
	return h.usecase.StopDaemon(ctx)
}

func (h CLIHandler) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	return h.usecase.DaemonStatus(ctx)
}

func (h CLIHandler) DaemonLogs(ctx context.Context, tail int) (string, error) {
	return h.usecase.DaemonLogs(ctx, tail)
}

func (h CLIHandler) SendEvent(ctx context.Context, event dto.Event) error {
	return h.usecase.SendEvent(ctx, event)
}

func (h CLIHandler) Flush(ctx context.Context) error {
	return h.usecase.Flush(ctx)
}

func (h CLIHandler) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	return h.usecase.TimeData(ctx, days)
}

func (h CLIHandler) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	return h.usecase.Sessions(ctx)
}

func (h CLIHandler) SetMaxSessions(ctx context.Context, n int) (int, error) {
	return h.usecase.SetMaxSessions(ctx, n)
}
