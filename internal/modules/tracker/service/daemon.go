package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
	trackerout "tabclock/internal/modules/tracker/port/out"
	"tabclock/internal/platform/config"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/logging"
)

const (
	daemonStartTimeout  = 5 * time.Second
	daemonStopTimeout   = 5 * time.Second
	defaultLogTailLines = 200
)

// DaemonService hosts the Runtime behind the local socket and is also the
// client side used by the CLI.
type DaemonService struct {
	cfg       config.Config
	runtime   *Runtime
	daemon    trackerout.DaemonStore
	ipcServer trackerout.IPCServer
	ipcClient trackerout.IPCClient
	events    trackerout.EventServer
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewDaemonService(cfg config.Config, runtime *Runtime, daemon trackerout.DaemonStore, ipcServer trackerout.IPCServer, ipcClient trackerout.IPCClient, events trackerout.EventServer, logger *slog.Logger) *DaemonService {
	return &DaemonService{
		cfg:       cfg,
		runtime:   runtime,
		daemon:    daemon,
		ipcServer: ipcServer,
		ipcClient: ipcClient,
		events:    events,
		logger:    logging.OrDiscard(logger),
	}
}

// RunDaemon serves the tracker in the foreground until ctx is cancelled or
// a Stop request arrives. The runtime flushes before the socket goes away.
func (s *DaemonService) RunDaemon(ctx context.Context) error {
	if s.runtime == nil {
		return fmt.Errorf("tracker runtime is not configured")
	}
	if s.ipcServer == nil {
		return fmt.Errorf("ipc server is not configured")
	}
	if err := s.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}
	if socketReachable(s.daemon.SocketPath()) {
		return fmt.Errorf("tracker daemon already running at %s", s.daemon.SocketPath())
	}
	if err := s.daemon.WritePID(ctx, os.Getpid()); err != nil {
		return err
	}
	defer s.cleanupRuntime(context.WithoutCancel(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.runtime.Run(runCtx)
	}()

	handler := &ipcHandler{runtime: s.runtime, stop: cancel}
	ipcErr := make(chan error, 1)
	go func() {
		ipcErr <- s.ipcServer.Serve(runCtx, s.daemon.SocketPath(), handler)
	}()

	if s.events != nil && s.cfg.ListenAddr != "" {
		go s.serveEvents(runCtx, handler)
	}
	if s.cfg.ConfigPath != "" {
		go s.watchConfig(runCtx)
	}
	s.logger.Info("tracker daemon started", "pid", os.Getpid(), "socket", s.daemon.SocketPath())

	var result error
	select {
	case <-runCtx.Done():
	case err := <-ipcErr:
		if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
			result = err
		}
	case err := <-runErr:
		cancel()
		s.logger.Info("tracker daemon stopped")
		return err
	}
	cancel()
	if err := <-runErr; err != nil && result == nil {
		result = err
	}
	s.logger.Info("tracker daemon stopped")
	return result
}

// serveEvents keeps the network endpoint optional: a bind failure is logged
// and the unix socket keeps serving.
func (s *DaemonService) serveEvents(ctx context.Context, sink trackerout.EventSink) {
	s.logger.Info("event endpoint listening", "addr", s.cfg.ListenAddr)
	if err := s.events.Serve(ctx, s.cfg.ListenAddr, sink); err != nil {
		s.logger.Error("event endpoint failed", "addr", s.cfg.ListenAddr, "error", err)
	}
}

// StartDaemon runs the daemon as a detached child process of this binary.
func (s *DaemonService) StartDaemon(ctx context.Context) error {
	if err := s.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}
	status, err := s.DaemonStatus(ctx)
	if err == nil && status.Running {
		if socketReachable(s.daemon.SocketPath()) {
			return nil
		}
		return fmt.Errorf("tracker daemon process is alive but socket is unavailable")
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.daemon.LogPath()), 0o755); err != nil {
		return fmt.Errorf("create daemon log dir: %w", err)
	}
	logFile, err := os.OpenFile(s.daemon.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(execPath, "daemon", "run", "--data", s.cfg.DataDir)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	_ = cmd.Process.Release()

	if err := waitForSocket(s.daemon.SocketPath(), daemonStartTimeout); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	return nil
}

// StopDaemon asks the daemon to shut down over IPC and falls back to
// SIGTERM, which the foreground command also handles gracefully.
func (s *DaemonService) StopDaemon(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		return nil
	}

	pid, err := s.daemon.ReadPID(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(s.daemon.SocketPath())
			return nil
		}
		return err
	}
	if !processAlive(pid) {
		_ = s.daemon.ClearPID(ctx)
		_ = os.Remove(s.daemon.SocketPath())
		return nil
	}
	if s.ipcClient == nil || s.ipcClient.Stop(ctx, s.daemon.SocketPath()) != nil {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("stop daemon pid=%d: %w", pid, err)
		}
	}
	deadline := time.Now().Add(daemonStopTimeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if processAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	if err := s.daemon.ClearPID(ctx); err != nil {
		return err
	}
	_ = os.Remove(s.daemon.SocketPath())
	return nil
}

func (s *DaemonService) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	out := dto.DaemonStatusOutput{SocketPath: s.daemon.SocketPath()}
	pid, err := s.daemon.ReadPID(ctx)
	if err == nil {
		out.PID = pid
		out.Running = processAlive(pid)
	}
	if out.Running && s.ipcClient != nil {
		status, statusErr := s.ipcClient.Status(ctx, s.daemon.SocketPath())
		if statusErr == nil {
			out.Status = &status
		}
	}
	return out, nil
}

// DaemonLogs returns the last tail lines written by a background daemon.
func (s *DaemonService) DaemonLogs(_ context.Context, tail int) (string, error) {
	if tail <= 0 {
		tail = defaultLogTailLines
	}
	file, err := os.Open(s.daemon.LogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open daemon log: %w", err)
	}
	defer file.Close()

	lines := make([]string, 0, tail)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if len(lines) == tail {
			lines = lines[1:]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan daemon log: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *DaemonService) SendEvent(ctx context.Context, event dto.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if err := s.ensureReachable(); err != nil {
		return err
	}
	return s.ipcClient.Event(ctx, s.daemon.SocketPath(), event)
}

func (s *DaemonService) Flush(ctx context.Context) error {
	if err := s.ensureReachable(); err != nil {
		return err
	}
	return s.ipcClient.Flush(ctx, s.daemon.SocketPath())
}

func (s *DaemonService) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	if err := s.ensureReachable(); err != nil {
		return attentiondto.TimeDataOutput{}, err
	}
	return s.ipcClient.TimeData(ctx, s.daemon.SocketPath(), days)
}

func (s *DaemonService) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	if err := s.ensureReachable(); err != nil {
		return sessiondto.SessionsOutput{}, err
	}
	return s.ipcClient.Sessions(ctx, s.daemon.SocketPath())
}

func (s *DaemonService) SetMaxSessions(ctx context.Context, n int) (int, error) {
	if err := s.ensureReachable(); err != nil {
		return 0, err
	}
	return s.ipcClient.SetMaxSessions(ctx, s.daemon.SocketPath(), n)
}

func (s *DaemonService) ensureReachable() error {
	if s.ipcClient == nil || !socketReachable(s.daemon.SocketPath()) {
		return apperrors.ErrDaemonNotRunning
	}
	return nil
}

// watchConfig applies max_sessions edits to the running daemon. Other
// settings take effect on the next start.
func (s *DaemonService) watchConfig(ctx context.Context) {
	last := s.cfg.MaxSessions
	err := config.Watch(ctx, s.cfg, func(next config.Config) {
		if next.MaxSessions == last {
			return
		}
		n, err := s.runtime.SetMaxSessions(ctx, next.MaxSessions)
		if err != nil {
			s.logger.Warn("apply max_sessions", "error", err)
			return
		}
		last = next.MaxSessions
		s.logger.Info("config reloaded", "max_sessions", n)
	}, func(err error) {
		s.logger.Warn("config reload failed", "error", err)
	})
	if err != nil {
		s.logger.Warn("config watch disabled", "error", err)
	}
}

func (s *DaemonService) cleanupRuntime(ctx context.Context) {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	_ = s.daemon.ClearPID(ctx)
	_ = os.Remove(s.daemon.SocketPath())
}

func (s *DaemonService) cleanupStaleArtifacts(ctx context.Context) error {
	pid, err := s.daemon.ReadPID(ctx)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("discarding unreadable pid record", "error", err)
			_ = s.daemon.ClearPID(ctx)
		}
	} else if pid > 0 && !processAlive(pid) {
		_ = s.daemon.ClearPID(ctx)
		_ = os.Remove(s.daemon.SocketPath())
	}

	if _, statErr := os.Stat(s.daemon.SocketPath()); statErr == nil {
		if !socketReachable(s.daemon.SocketPath()) {
			if removeErr := os.Remove(s.daemon.SocketPath()); removeErr != nil && !os.IsNotExist(removeErr) {
				return fmt.Errorf("remove stale daemon socket: %w", removeErr)
			}
		}
	}
	return nil
}

type ipcHandler struct {
	runtime *Runtime
	stop    context.CancelFunc
}

func (h *ipcHandler) Event(ctx context.Context, event dto.Event) error {
	return h.runtime.Dispatch(ctx, event)
}

func (h *ipcHandler) Flush(ctx context.Context) error {
	return h.runtime.Flush(ctx)
}

func (h *ipcHandler) TimeData(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	return h.runtime.TimeData(ctx, days)
}

func (h *ipcHandler) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	return h.runtime.Sessions(ctx)
}

func (h *ipcHandler) SetMaxSessions(ctx context.Context, n int) (int, error) {
	return h.runtime.SetMaxSessions(ctx, n)
}

func (h *ipcHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.runtime.Status(ctx)
}

func (h *ipcHandler) Stop(context.Context) error {
	h.stop()
	return nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if socketReachable(path) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket not ready: %s", path)
}

func socketReachable(path string) bool {
	conn, err := net.DialTimeout("unix", path, 150*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
