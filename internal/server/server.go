package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/watch"
	"github.com/zeusync/methodwatch/internal/reporter"
)

// Server exposes the statistics registry over HTTP: the query endpoints,
// the live measurement stream, Prometheus metrics and the demo routes.
type Server struct {
	config Config

	watcher  *watch.Watcher
	hub      *Hub
	metrics  *prom.Registry
	reporter *reporter.Reporter
	logger   log.Log

	handler     http.Handler
	httpServer  *http.Server
	http3Server *http3.Server
	listener    net.Listener
	group       *errgroup.Group
	cancel      context.CancelFunc

	running atomic.Bool
	closed  atomic.Bool
}

// Config holds server configuration
type Config struct {
	// Network settings
	ListenAddr  string
	HTTP3Addr   string
	TLSCertFile string
	TLSKeyFile  string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// DemoRoutes mounts the /test endpoints.
	DemoRoutes bool
	// DemoThresholdMs is the slow boundary used by the demo routes.
	DemoThresholdMs uint64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		DemoRoutes:        true,
		DemoThresholdMs:   500,
	}
}

// Stats is a point-in-time view of the server.
type Stats struct {
	Keys              int    `json:"keys"`
	StreamSubscribers int    `json:"streamSubscribers"`
	StreamDropped     uint64 `json:"streamDropped"`
}

// NewServer creates a server. The hub must already be registered as a sink
// of watcher for the stream to carry anything; metrics and rep may be nil.
func NewServer(config Config, watcher *watch.Watcher, hub *Hub, metrics *prom.Registry, rep *reporter.Reporter, logger log.Log) (*Server, error) {
	if config.ListenAddr == "" {
		return nil, fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if config.HTTP3Addr != "" && (config.TLSCertFile == "" || config.TLSKeyFile == "") {
		return nil, fmt.Errorf("%w: http3 requires a TLS certificate and key", ErrInvalidConfig)
	}
	if watcher == nil {
		return nil, fmt.Errorf("%w: watcher is required", ErrInvalidConfig)
	}
	if hub == nil {
		hub = NewHub(DefaultStreamBuffer, logger)
	}
	if logger == nil {
		logger = log.Nop()
	}

	s := &Server{
		config:   config,
		watcher:  watcher,
		hub:      hub,
		metrics:  metrics,
		reporter: rep,
		logger:   logger.With(log.String("component", "server")),
	}
	s.handler = s.routes()

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.String("http3_addr", config.HTTP3Addr),
		log.Bool("statistics_enabled", watcher.StatisticsEnabled()),
		log.Bool("demo_routes", config.DemoRoutes))

	return s, nil
}

// Handler returns the root handler with every route mounted.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listeners and serves in the background. Use Wait to
// observe a serve error and Stop to shut down.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	s.logger.Info("Starting server")

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	s.listener = listener

	handler := s.handler
	if s.config.HTTP3Addr != "" {
		s.http3Server = &http3.Server{
			Addr:    s.config.HTTP3Addr,
			Handler: s.handler,
		}
		handler = s.advertiseHTTP3(s.handler)
	}

	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	// The group context ends when a listener fails or Stop runs.
	groupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.group, groupCtx = errgroup.WithContext(groupCtx)
	s.group.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", log.Error(err))
			return err
		}
		return nil
	})
	if s.http3Server != nil {
		s.group.Go(func() error {
			if err := s.http3Server.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP/3 server failed", log.Error(err))
				return err
			}
			return nil
		})
	}
	s.group.Go(func() error {
		<-groupCtx.Done()
		if !s.running.Load() {
			return nil
		}
		// A listener failed: take the remaining ones down so Wait returns.
		s.logger.Warn("Listener failed, closing remaining listeners")
		if err := s.httpServer.Close(); err != nil {
			s.logger.Error("Failed to close HTTP server", log.Error(err))
		}
		if s.http3Server != nil {
			_ = s.http3Server.Close()
		}
		return nil
	})

	if s.reporter != nil {
		if err := s.reporter.Start(); err != nil {
			s.logger.Error("Failed to start reporter", log.Error(err))
		}
	}

	s.logger.Info("Server listening",
		log.String("addr", listener.Addr().String()))

	return nil
}

// Addr returns the bound HTTP address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Wait blocks until every listener has stopped and returns the first serve
// error.
func (s *Server) Wait() error {
	if s.group == nil {
		return ErrServerNotRunning
	}
	return s.group.Wait()
}

// Stop shuts the listeners down gracefully and disconnects stream
// subscribers.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if s.reporter != nil {
		errs = append(errs, s.reporter.Stop())
	}
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if s.http3Server != nil {
		if err := s.http3Server.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close http3: %w", err))
		}
	}
	s.cancel()
	errs = append(errs, s.group.Wait())

	s.logger.Info("Server stopped")

	return errors.Join(errs...)
}

// Close stops the server if needed and makes it unusable.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	s.logger.Info("Closing server")

	if s.running.Load() {
		return s.Stop(context.Background())
	}
	return nil
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	keys := 0
	if reg := s.watcher.Registry(); reg != nil {
		keys = reg.Len()
	}
	return Stats{
		Keys:              keys,
		StreamSubscribers: s.hub.Subscribers(),
		StreamDropped:     s.hub.Dropped(),
	}
}

func (s *Server) advertiseHTTP3(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.http3Server.SetQUICHeaders(w.Header()); err != nil {
			s.logger.Debug("Failed to set Alt-Svc header", log.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}
