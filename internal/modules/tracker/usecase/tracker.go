package usecase

import (
	"context"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
	trackerin "tabclock/internal/modules/tracker/port/in"
)

type servicePort interface {
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

type Interactor struct {
	svc servicePort
}

func NewInteractor(svc servicePort) trackerin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) RunDaemon(ctx context.Context) error {
	return i.svc.RunDaemon(ctx)
}

func (i *Interactor) StartDaemon(ctx context.Context) error {
	return i.svc.StartDaemon(ctx)
}

func (i *Interactor) StopDaemon(ctx context.Context) error {
	return i.svc.StopDaemon(ctx)
}

func (i *Interactor) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	return i.svc.DaemonStatus(ctx)
}

func (i *Interactor) DaemonLogs(ctx context.Context, tail int) (string, error) {
	return i.svc.DaemonLogs(ctx, tail)
}

func (i *Interactor) SendEvent(ctx context.Context, event dto.Event) error {
	return i.svc.SendEvent(ctx, event)
}

func (i *Interactor) Flush(ctx context.Context) error {
	return i.svc.Flush(ctx)
}

// TimeData flushes first so the running segment is included in the totals.
func (i *Interactor) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	if err := i.svc.Flush(ctx); err != nil {
		return attentiondto.TimeDataOutput{}, err
	}
	return i.svc.TimeData(ctx, days)
}

func (i *Interactor) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	return i.svc.Sessions(ctx)
}

func (i *Interactor) SetMaxSessions(ctx context.Context, n int) (int, error) {
	return i.svc.SetMaxSessions(ctx, n)
}
