// Package management exposes the operator surface: an HTTP API to inspect
// the server and start or stop the player listener, a websocket stream of
// the event feed, and the standard gRPC health service.
package management

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/observability"
)

// ListenerService is the name the player listener is reported under by the
// gRPC health service. The empty service name mirrors it.
const ListenerService = "hearth.telnet"

// Listener is the player-facing front door.
type Listener interface {
	Start() error
	Stop()
	IsRunning() bool
	Addr() string
}

// Sessions reports on connected player sessions.
type Sessions interface {
	Count() int
	Players() []string
}

// Server is the management endpoint.
type Server struct {
	cfg      config.ManagementConfig
	name     string
	listener Listener
	sessions Sessions
	feed     *observability.Feed
	logger   *zap.Logger
	health   *health.Server
	upgrader websocket.Upgrader
	started  time.Time

	// listenerMu serializes listener start/stop requests.
	listenerMu sync.Mutex

	mu       sync.Mutex
	httpSrv  *http.Server
	grpcSrv  *grpc.Server
	httpAddr string
	grpcAddr string
	stopped  chan struct{}
}

// New creates a management Server. It does not bind any port until Start.
//
// Precondition: listener, sessions, feed and logger must be non-nil.
func New(cfg config.ManagementConfig, name string, listener Listener, sessions Sessions, feed *observability.Feed, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		name:     name,
		listener: listener,
		sessions: sessions,
		feed:     feed,
		logger:   logger,
		health:   health.NewServer(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		started: time.Now(),
		stopped: make(chan struct{}),
	}
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /listener/start", s.handleListenerStart)
	mux.HandleFunc("POST /listener/stop", s.handleListenerStop)
	mux.HandleFunc("POST /feed/clear", s.handleFeedClear)
	mux.HandleFunc("GET /feed", s.handleFeed)
	return mux
}

// Start binds the HTTP and gRPC ports and serves until Stop is called.
//
// Postcondition: Returns nil after a clean Stop, or the first serve error.
func (s *Server) Start() error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.HTTPAddr(), err)
	}
	grpcLis, err := net.Listen("tcp", s.cfg.GRPCAddr())
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("listening on %s: %w", s.cfg.GRPCAddr(), err)
	}

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, s.health)
	s.syncHealth()

	s.mu.Lock()
	s.httpSrv, s.grpcSrv = httpSrv, grpcSrv
	s.httpAddr, s.grpcAddr = httpLis.Addr().String(), grpcLis.Addr().String()
	s.mu.Unlock()

	s.logger.Info("management listening",
		zap.String("http_addr", httpLis.Addr().String()),
		zap.String("grpc_addr", grpcLis.Addr().String()),
	)

	errCh := make(chan error, 2)
	go func() { errCh <- grpcSrv.Serve(grpcLis) }()
	go func() {
		if err := httpSrv.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Stop()
			return fmt.Errorf("serving management: %w", err)
		}
		return nil
	case <-s.stopped:
		return nil
	}
}

// Stop shuts both servers down and marks every service as not serving.
// Stop is idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	httpSrv, grpcSrv := s.httpSrv, s.grpcSrv
	s.httpSrv, s.grpcSrv = nil, nil
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
	s.mu.Unlock()

	s.health.Shutdown()
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("management http shutdown", zap.Error(err))
		}
	}
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
}

// HTTPAddr returns the bound HTTP address, or empty before Start.
func (s *Server) HTTPAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// GRPCAddr returns the bound gRPC address, or empty before Start.
func (s *Server) GRPCAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// syncHealth reports SERVING exactly while the player listener is up.
func (s *Server) syncHealth() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.listener.IsRunning() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ListenerService, status)
}

// StartListener starts the player listener and updates health.
func (s *Server) StartListener() error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	err := s.listener.Start()
	s.syncHealth()
	if err != nil {
		return err
	}
	s.logger.Info("listener started by operator", zap.String("addr", s.listener.Addr()))
	return nil
}

// StopListener stops the player listener, disconnecting its sessions, and
// updates health.
func (s *Server) StopListener() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listener.Stop()
	s.syncHealth()
	s.logger.Info("listener stopped by operator")
}
