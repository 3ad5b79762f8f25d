package out

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"time"

	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	"tabclock/internal/modules/tracker/dto"
	trackerout "tabclock/internal/modules/tracker/port/out"
)

// ServiceName is the JSON-RPC service the daemon registers. Bridges call
// methods such as "Tracker.Event".
const ServiceName = "Tracker"

const callTimeout = 10 * time.Second

type JSONRPCServer struct{}

type JSONRPCClient struct{}

func NewJSONRPCServer() trackerout.IPCServer {
	return &JSONRPCServer{}
}

func NewJSONRPCClient() trackerout.IPCClient {
	return &JSONRPCClient{}
}

type rpcHandler struct {
	h trackerout.IPCHandler
}

type timeDataReq struct {
	Days int `json:"days"`
}

type maxSessionsReq struct {
	N int `json:"n"`
}

type maxSessionsResp struct {
	MaxSessions int `json:"max_sessions"`
}

type empty struct{}

func (s *rpcHandler) Event(req dto.Event, _ *empty) error {
	return s.h.Event(context.Background(), req)
}

func (s *rpcHandler) Flush(_ empty, _ *empty) error {
	return s.h.Flush(context.Background())
}

func (s *rpcHandler) TimeData(req timeDataReq, resp *attentiondto.TimeDataOutput) error {
	out, err := s.h.TimeData(context.Background(), req.Days)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *rpcHandler) Sessions(_ empty, resp *sessiondto.SessionsOutput) error {
	out, err := s.h.Sessions(context.Background())
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *rpcHandler) SetMaxSessions(req maxSessionsReq, resp *maxSessionsResp) error {
	n, err := s.h.SetMaxSessions(context.Background(), req.N)
	if err != nil {
		return err
	}
	resp.MaxSessions = n
	return nil
}

func (s *rpcHandler) Status(_ empty, resp *dto.StatusOutput) error {
	out, err := s.h.Status(context.Background())
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *rpcHandler) Stop(_ empty, _ *empty) error {
	return s.h.Stop(context.Background())
}

func (s *JSONRPCServer) Serve(ctx context.Context, socketPath string, handler trackerout.IPCHandler) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create ipc dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale ipc socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen ipc socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod ipc socket: %w", err)
	}
	defer ln.Close()

	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName(ServiceName, &rpcHandler{h: handler}); err != nil {
		return fmt.Errorf("register ipc handler: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go rpcSrv.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

func (c *JSONRPCClient) Event(ctx context.Context, socketPath string, event dto.Event) error {
	return call(ctx, socketPath, "Event", event, &empty{})
}

func (c *JSONRPCClient) Flush(ctx context.Context, socketPath string) error {
	return call(ctx, socketPath, "Flush", empty{}, &empty{})
}

func (c *JSONRPCClient) TimeData(ctx context.Context, socketPath string, days int) (attentiondto.TimeDataOutput, error) {
	resp := attentiondto.TimeDataOutput{}
	if err := call(ctx, socketPath, "TimeData", timeDataReq{Days: days}, &resp); err != nil {
		return attentiondto.TimeDataOutput{}, err
	}
	return resp, nil
}

func (c *JSONRPCClient) Sessions(ctx context.Context, socketPath string) (sessiondto.SessionsOutput, error) {
	resp := sessiondto.SessionsOutput{}
	if err := call(ctx, socketPath, "Sessions", empty{}, &resp); err != nil {
		return sessiondto.SessionsOutput{}, err
	}
	return resp, nil
}

func (c *JSONRPCClient) SetMaxSessions(ctx context.Context, socketPath string, n int) (int, error) {
	resp := maxSessionsResp{}
	if err := call(ctx, socketPath, "SetMaxSessions", maxSessionsReq{N: n}, &resp); err != nil {
		return 0, err
	}
	return resp.MaxSessions, nil
}

func (c *JSONRPCClient) Status(ctx context.Context, socketPath string) (dto.StatusOutput, error) {
	resp := dto.StatusOutput{}
	if err := call(ctx, socketPath, "Status", empty{}, &resp); err != nil {
		return dto.StatusOutput{}, err
	}
	return resp, nil
}

func (c *JSONRPCClient) Stop(ctx context.Context, socketPath string) error {
	return call(ctx, socketPath, "Stop", empty{}, &empty{})
}

func call(ctx context.Context, socketPath, method string, args, reply any) error {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call(ServiceName+"."+method, args, reply)
}

func dialClient(ctx context.Context, socketPath string) (*rpc.Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(callTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	return rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)), nil
}
