package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	trackerout "tabclock/internal/modules/tracker/port/out"
)

// pidRecord is the content of tabclock.pid.
type pidRecord struct {
	PID       int       `json:"pid"`
	Socket    string    `json:"socket"`
	StartedAt time.Time `json:"started_at"`
}

// FileDaemonStore keeps the daemon's pid record, socket and log under the
// data directory.
type FileDaemonStore struct {
	dataDir    string
	pidPath    string
	socketPath string
	logPath    string
	now        func() time.Time
}

func NewFileDaemonStore(dataDir string) trackerout.DaemonStore {
	return &FileDaemonStore{
		dataDir:    dataDir,
		pidPath:    filepath.Join(dataDir, "tabclock.pid"),
		socketPath: filepath.Join(dataDir, "tabclock.sock"),
		logPath:    filepath.Join(dataDir, "tabclock.log"),
		now:        time.Now,
	}
}

// WritePID replaces the pid record atomically, so a concurrent `daemon
// status` never reads a half-written file.
func (s *FileDaemonStore) WritePID(_ context.Context, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid daemon pid %d", pid)
	}
	if err := os.MkdirAll(s.dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	raw, err := json.Marshal(pidRecord{PID: pid, Socket: s.socketPath, StartedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode daemon pid: %w", err)
	}
	tmp, err := os.CreateTemp(s.dataDir, ".tabclock.pid-*")
	if err != nil {
		return fmt.Errorf("write daemon pid: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write daemon pid: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write daemon pid: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.pidPath); err != nil {
		return fmt.Errorf("write daemon pid: %w", err)
	}
	return nil
}

// ReadPID returns the recorded pid. A record naming another socket belongs
// to a different data directory layout and is treated as stale.
func (s *FileDaemonStore) ReadPID(_ context.Context) (int, error) {
	raw, err := os.ReadFile(s.pidPath)
	if err != nil {
		return 0, err
	}
	var rec pidRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, fmt.Errorf("decode daemon pid: %w", err)
	}
	if rec.PID <= 0 {
		return 0, fmt.Errorf("decode daemon pid: missing pid")
	}
	if rec.Socket != "" && rec.Socket != s.socketPath {
		return 0, fmt.Errorf("daemon pid names socket %s, expected %s", rec.Socket, s.socketPath)
	}
	return rec.PID, nil
}

func (s *FileDaemonStore) ClearPID(_ context.Context) error {
	if err := os.Remove(s.pidPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove daemon pid: %w", err)
	}
	return nil
}

func (s *FileDaemonStore) SocketPath() string {
	return s.socketPath
}

func (s *FileDaemonStore) LogPath() string {
	return s.logPath
}
