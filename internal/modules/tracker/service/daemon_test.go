package service_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	sessionoutadapter "tabclock/internal/modules/session/adapter/out"
	trackeroutadapter "tabclock/internal/modules/tracker/adapter/out"
	"tabclock/internal/modules/tracker/dto"
	"tabclock/internal/modules/tracker/service"
	"tabclock/internal/platform/config"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/kv"
)

func newDaemon(t *testing.T, store *kv.MemoryStore) (*service.DaemonService, *safeClock) {
	t.Helper()
	// Unix socket paths are length-limited, so stay out of t.TempDir.
	dataDir, err := os.MkdirTemp("", "tabclock")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dataDir) })
	cfg, err := config.New(dataDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	rt, clk := newRuntime(store, &seqID{}, service.OptionsFromConfig(cfg))
	svc := service.NewDaemonService(cfg, rt, trackeroutadapter.NewFileDaemonStore(dataDir),
		trackeroutadapter.NewJSONRPCServer(), trackeroutadapter.NewJSONRPCClient(), nil, nil)
	return svc, clk
}

func TestDaemonServesClientsUntilStopped(t *testing.T) {
	t.Parallel()
	store := kv.NewMemory()
	daemon, clk := newDaemon(t, store)

	runErr := make(chan error, 1)
	go func() { runErr <- daemon.RunDaemon(context.Background()) }()

	deadline := time.Now().Add(3 * time.Second)
	var status dto.DaemonStatusOutput
	for time.Now().Before(deadline) {
		status, _ = daemon.DaemonStatus(context.Background())
		if status.Status != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !status.Running || status.PID != os.Getpid() || status.Status == nil {
		t.Fatalf("daemon not reachable: %+v", status)
	}

	ctx := context.Background()
	for _, ev := range []dto.Event{
		{Kind: dto.KindBrowserStarted},
		{Kind: dto.KindTabCreated, TabID: "1", WindowID: "w1", URL: "https://a.com/"},
		{Kind: dto.KindTabActivated, TabID: "1", WindowID: "w1"},
		{Kind: dto.KindWindowFocusChanged, WindowID: "w1"},
	} {
		if err := daemon.SendEvent(ctx, ev); err != nil {
			t.Fatalf("send %s: %v", ev.Kind, err)
		}
	}
	clk.Advance(4 * time.Second)
	if err := daemon.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	report, err := daemon.TimeData(ctx, 1)
	if err != nil {
		t.Fatalf("time data: %v", err)
	}
	if report.TotalMs != 4000 {
		t.Fatalf("expected 4000ms, got %+v", report)
	}
	if n, err := daemon.SetMaxSessions(ctx, 500); err != nil || n != config.MaxMaxSessions {
		t.Fatalf("set max sessions: %d %v", n, err)
	}
	if err := daemon.SendEvent(ctx, dto.Event{Kind: "bogus"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if err := daemon.StopDaemon(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run daemon: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not stop")
	}

	if err := daemon.Flush(ctx); !errors.Is(err, apperrors.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning after stop, got %v", err)
	}
	archive, err := sessionoutadapter.NewKVArchiveStore(store).Load(ctx)
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}
	if len(archive) != 0 {
		t.Fatalf("stopping the daemon must not archive the session: %+v", archive)
	}
	snapshot, err := sessionoutadapter.NewKVSnapshotStore(store).LoadActive(ctx)
	if err != nil || snapshot.SessionID != "sess-1" || len(snapshot.SessionTabs) != 1 {
		t.Fatalf("session should stay checkpointed for the next start: %+v %v", snapshot, err)
	}
}

func TestDaemonLogsTail(t *testing.T) {
	t.Parallel()
	dataDir, err := os.MkdirTemp("", "tabclock")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dataDir) })
	store := trackeroutadapter.NewFileDaemonStore(dataDir)
	if err := os.WriteFile(store.LogPath(), []byte("l1\nl2\nl3\n"), 0o644); err != nil {
		t.Fatalf("write logs: %v", err)
	}
	cfg, _ := config.New(dataDir)
	svc := service.NewDaemonService(cfg, nil, store, nil, nil, nil, nil)

	logs, err := svc.DaemonLogs(context.Background(), 2)
	if err != nil {
		t.Fatalf("daemon logs: %v", err)
	}
	if logs != "l2\nl3" {
		t.Fatalf("unexpected tail output: %q", logs)
	}
	if err := svc.RunDaemon(context.Background()); err == nil {
		t.Fatalf("expected an error without a runtime")
	}
}

func TestDaemonClientWithoutDaemon(t *testing.T) {
	t.Parallel()
	daemon, _ := newDaemon(t, kv.NewMemory())
	ctx := context.Background()
	if _, err := daemon.Sessions(ctx); !errors.Is(err, apperrors.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	status, err := daemon.DaemonStatus(ctx)
	if err != nil || status.Running {
		t.Fatalf("expected stopped daemon, got %+v %v", status, err)
	}
	if err := daemon.StopDaemon(ctx); err != nil {
		t.Fatalf("stopping an absent daemon should succeed: %v", err)
	}
}
