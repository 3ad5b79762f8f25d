package usecase_test

import (
	"context"
	"errors"
	"testing"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
	"tabclock/internal/modules/tracker/usecase"
	apperrors "tabclock/internal/platform/errors"
)

type fakeService struct {
	calls    []string
	flushErr error
}

func (f *fakeService) RunDaemon(context.Context) error { return nil }

func (f *fakeService) StartDaemon(context.Context) error { return nil }

func (f *fakeService) StopDaemon(context.Context) error { return nil }

func (f *fakeService) DaemonStatus(context.Context) (dto.DaemonStatusOutput, error) {
	return dto.DaemonStatusOutput{}, nil
}

func (f *fakeService) DaemonLogs(context.Context, int) (string, error) { return "", nil }

func (f *fakeService) SendEvent(context.Context, dto.Event) error { return nil }

func (f *fakeService) Flush(context.Context) error {
	f.calls = append(f.calls, "flush")
	return f.flushErr
}

func (f *fakeService) TimeData(_ context.Context, days int) (attentiondto.TimeDataOutput, error) {
	f.calls = append(f.calls, "time_data")
	return attentiondto.TimeDataOutput{Days: days}, nil
}

func (f *fakeService) Sessions(context.Context) (sessiondto.SessionsOutput, error) {
	return sessiondto.SessionsOutput{}, nil
}

func (f *fakeService) SetMaxSessions(_ context.Context, n int) (int, error) { return n, nil }

func TestTimeDataFlushesFirst(t *testing.T) {
	t.Parallel()
	svc := &fakeService{}
	out, err := usecase.NewInteractor(svc).TimeData(context.Background(), 7)
	if err != nil {
		t.Fatalf("time data: %v", err)
	}
	if out.Days != 7 || len(svc.calls) != 2 || svc.calls[0] != "flush" || svc.calls[1] != "time_data" {
		t.Fatalf("unexpected calls %v out=%+v", svc.calls, out)
	}
}

func TestTimeDataStopsWhenDaemonIsDown(t *testing.T) {
	t.Parallel()
	svc := &fakeService{flushErr: apperrors.ErrDaemonNotRunning}
	if _, err := usecase.NewInteractor(svc).TimeData(context.Background(), 1); !errors.Is(err, apperrors.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if len(svc.calls) != 1 {
		t.Fatalf("time data must not be read after a failed flush: %v", svc.calls)
	}
}
