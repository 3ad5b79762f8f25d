package out_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	out "tabclock/internal/modules/tracker/adapter/out"
	"tabclock/internal/modules/tracker/dto"
)

type fakeIPCHandler struct {
	mu      sync.Mutex
	events  []dto.Event
	flushes int
	stopped bool
}

func (h *fakeIPCHandler) Event(_ context.Context, event dto.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *fakeIPCHandler) Flush(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushes++
	return nil
}

func (h *fakeIPCHandler) TimeData(_ context.Context, days int) (attentiondto.TimeDataOutput, error) {
	return attentiondto.TimeDataOutput{Days: days, TotalMs: 1500, Totals: []attentiondto.DomainTotalOutput{{Domain: "a.com", Ms: 1500}}}, nil
}

func (h *fakeIPCHandler) Sessions(context.Context) (sessiondto.SessionsOutput, error) {
	return sessiondto.SessionsOutput{MaxSessions: 4, Sessions: []sessiondto.SessionOutput{{ID: "sess-1", TabCount: 2}}}, nil
}

func (h *fakeIPCHandler) SetMaxSessions(_ context.Context, n int) (int, error) {
	if n > 20 {
		return 20, nil
	}
	return n, nil
}

func (h *fakeIPCHandler) Status(context.Context) (dto.StatusOutput, error) {
	return dto.StatusOutput{Attention: attentiondto.StateOutput{State: "tracking", Domain: "a.com"}, Events: 3}, nil
}

func (h *fakeIPCHandler) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	return nil
}

func TestJSONRPCServerClientContract(t *testing.T) {
	t.Parallel()
	h := &fakeIPCHandler{}
	server := out.NewJSONRPCServer()
	client := out.NewJSONRPCClient()
	socketPath := filepath.Join(t.TempDir(), "tabclock.sock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, socketPath, h)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.Status(context.Background(), socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	status, err := client.Status(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Attention.Domain != "a.com" || status.Events != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}

	ev := dto.Event{Kind: dto.KindTabActivated, TabID: "7", WindowID: "1", URL: "https://a.com/"}
	if err := client.Event(context.Background(), socketPath, ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := client.Flush(context.Background(), socketPath); err != nil {
		t.Fatalf("flush: %v", err)
	}
	report, err := client.TimeData(context.Background(), socketPath, 7)
	if err != nil {
		t.Fatalf("time data: %v", err)
	}
	if report.Days != 7 || len(report.Totals) != 1 || report.Totals[0].Ms != 1500 {
		t.Fatalf("unexpected report: %+v", report)
	}
	sessions, err := client.Sessions(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if sessions.MaxSessions != 4 || len(sessions.Sessions) != 1 || sessions.Sessions[0].ID != "sess-1" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if n, err := client.SetMaxSessions(context.Background(), socketPath, 50); err != nil || n != 20 {
		t.Fatalf("set max sessions: %d %v", n, err)
	}
	if err := client.Stop(context.Background(), socketPath); err != nil {
		t.Fatalf("stop: %v", err)
	}

	h.mu.Lock()
	if len(h.events) != 1 || h.events[0] != ev || h.flushes != 1 || !h.stopped {
		h.mu.Unlock()
		t.Fatalf("handler did not observe calls: %+v", h)
	}
	h.mu.Unlock()

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected socket mode 0600, got %v", info.Mode().Perm())
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

func TestJSONRPCClientWithoutDaemon(t *testing.T) {
	t.Parallel()
	client := out.NewJSONRPCClient()
	if err := client.Flush(context.Background(), filepath.Join(t.TempDir(), "missing.sock")); err == nil {
		t.Fatalf("expected dial error")
	}
}
