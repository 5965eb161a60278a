package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/neo6systems/neo6/internal/loader"
	"github.com/neo6systems/neo6/internal/observability"
	"github.com/neo6systems/neo6/internal/router"
	"github.com/neo6systems/neo6/internal/txregistry"
)

// Command is the tagged-union request envelope: exactly one of the
// protocol/level/connection_id/lines fields is meaningful, selected by
// Command per §4.10's command table.
type Command struct {
	Command      string `json:"command"`
	Protocol     string `json:"protocol,omitempty"`
	Level        string `json:"level,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	Lines        int    `json:"lines,omitempty"`
}

// Response is the reply envelope for every command.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ConnectionInfo describes one live data-plane connection tracked by a
// Frontend Listener for KillConnection/GetConnections.
type ConnectionInfo struct {
	ID          string    `json:"id"`
	Protocol    string    `json:"protocol"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ConnectionTracker is implemented by the app wiring layer, aggregating
// live connections across every Frontend Listener.
type ConnectionTracker interface {
	List() []ConnectionInfo
	Kill(id string) bool
}

// ConfigReloader rebuilds the transaction registry and protocol config
// atomically, reporting the same shape ReloadConfig needs to answer with.
type ConfigReloader interface {
	ReloadAll() error
}

// Server dispatches Admin Control Socket commands against the live proxy
// state. Every field is read-mostly except through the mutating commands
// (SetLogLevel, ReloadConfig, ReloadProtocols, KillConnection, Shutdown).
type Server struct {
	Loader       *loader.Loader
	Transactions *txregistry.Registry
	Router       *router.Router
	Reloader     ConfigReloader
	Conns        ConnectionTracker
	Logs         *RingLog
	StartedAt    time.Time
	SetLogLevel  func(level string) error
	Shutdown     func(ctx context.Context) error
}

func (s *Server) dispatch(ctx context.Context, cmd Command) Response {
	switch cmd.Command {
	case "Status":
		return s.handleStatus()
	case "GetMetrics":
		return Response{OK: true, Data: observability.Snapshot()}
	case "GetConnections":
		return s.handleGetConnections()
	case "GetProtocols":
		return Response{OK: true, Data: s.Loader.Registry().Names()}
	case "SetLogLevel":
		return s.handleSetLogLevel(cmd.Level)
	case "ReloadConfig":
		return s.handleReload()
	case "ReloadProtocols":
		return s.handleReloadProtocols()
	case "TestProtocol":
		return s.handleTestProtocol(ctx, cmd.Protocol)
	case "KillConnection":
		return s.handleKillConnection(cmd.ConnectionID)
	case "GetLogs":
		return Response{OK: true, Data: s.Logs.Tail(cmd.Lines)}
	case "Shutdown":
		return s.handleShutdown()
	default:
		return Response{OK: false, Error: fmt.Sprintf("admin: unknown command %q", cmd.Command)}
	}
}

type statusInfo struct {
	Running     bool     `json:"running"`
	UptimeMS    int64    `json:"uptime_ms"`
	Connections int      `json:"connections"`
	Protocols   []string `json:"protocols"`
}

func (s *Server) handleStatus() Response {
	conns := 0
	if s.Conns != nil {
		conns = len(s.Conns.List())
	}
	return Response{OK: true, Data: statusInfo{
		Running:     true,
		UptimeMS:    time.Since(s.StartedAt).Milliseconds(),
		Connections: conns,
		Protocols:   s.Loader.Registry().Names(),
	}}
}

func (s *Server) handleGetConnections() Response {
	if s.Conns == nil {
		return Response{OK: true, Data: []ConnectionInfo{}}
	}
	return Response{OK: true, Data: s.Conns.List()}
}

func (s *Server) handleSetLogLevel(level string) Response {
	if level == "" {
		return Response{OK: false, Error: "admin: level is required"}
	}
	if s.SetLogLevel == nil {
		return Response{OK: false, Error: "admin: log level control not wired"}
	}
	if err := s.SetLogLevel(level); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, Data: map[string]string{"level": level}}
}

func (s *Server) handleReload() Response {
	if s.Reloader == nil {
		return Response{OK: false, Error: "admin: config reload not wired"}
	}
	if err := s.Reloader.ReloadAll(); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}

func (s *Server) handleReloadProtocols() Response {
	if err := s.Loader.Reload("", nil); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, Data: s.Loader.Registry().Names()}
}

func (s *Server) handleTestProtocol(ctx context.Context, protocol string) Response {
	if protocol == "" {
		return Response{OK: false, Error: "admin: protocol is required"}
	}
	loaded := false
	for _, name := range s.Loader.Registry().Names() {
		if name == protocol {
			loaded = true
			break
		}
	}
	if !loaded {
		return Response{OK: true, Data: map[string]any{"pass": false, "reason": "protocol not loaded"}}
	}

	probeID := "_PROBE_" + protocol
	if _, ok := s.Transactions.Get(probeID); !ok {
		return Response{OK: true, Data: map[string]any{"pass": true, "note": "protocol loaded, no probe transaction registered"}}
	}

	start := time.Now()
	resp := s.Router.Invoke(ctx, router.Request{TransactionID: probeID})
	elapsed := time.Since(start)
	return Response{OK: true, Data: map[string]any{
		"pass":        resp.Status == "success",
		"duration_ms": elapsed.Milliseconds(),
		"error_code":  resp.ErrorCode,
	}}
}

func (s *Server) handleKillConnection(id string) Response {
	if id == "" {
		return Response{OK: false, Error: "admin: connection_id is required"}
	}
	if s.Conns == nil {
		return Response{OK: false, Error: "admin: connection tracking not wired"}
	}
	if !s.Conns.Kill(id) {
		return Response{OK: false, Error: "admin: unknown connection id"}
	}
	return Response{OK: true}
}

func (s *Server) handleShutdown() Response {
	if s.Shutdown == nil {
		return Response{OK: false, Error: "admin: shutdown not wired"}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()
	return Response{OK: true}
}
