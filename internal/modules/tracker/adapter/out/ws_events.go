package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"tabclock/internal/modules/tracker/dto"
	trackerout "tabclock/internal/modules/tracker/port/out"
	"tabclock/internal/platform/logging"
)

// EventsPath is where extensions open their event stream.
const EventsPath = "/events"

const shutdownTimeout = 2 * time.Second

// Ack answers every frame a client sends.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WebSocketEventServer accepts one JSON event per text frame and answers
// each with an Ack.
type WebSocketEventServer struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketEventServer(logger *slog.Logger) trackerout.EventServer {
	return &WebSocketEventServer{
		logger: logging.OrDiscard(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return AllowedOrigin(r.Header.Get("Origin")) },
		},
	}
}

// AllowedOrigin admits browser extensions and local pages. Web pages from
// other hosts must not be able to feed the tracker.
func AllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension", "safari-web-extension":
		return true
	case "http", "https":
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1" || host == "::1"
	}
	return false
}

func (s *WebSocketEventServer) Serve(ctx context.Context, addr string, sink trackerout.EventSink) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		s.serveConn(ctx, conn, sink)
	})
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *WebSocketEventServer) serveConn(ctx context.Context, conn *websocket.Conn, sink trackerout.EventSink) {
	done := make(chan struct{})
	defer close(done)
	// Hijacked connections outlive http.Server.Shutdown.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon stopping"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("extension connected", "remote", remote)
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("extension connection dropped", "remote", remote, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		ack := Ack{OK: true}
		var event dto.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			ack = Ack{Error: fmt.Sprintf("decode event: %v", err)}
		} else if err := sink.Event(ctx, event); err != nil {
			ack = Ack{Error: err.Error()}
		}
		if err := conn.WriteJSON(ack); err != nil {
			return
		}
	}
}
