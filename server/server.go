package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/server/endpoint"
	"github.com/hyodoblog/mojiokoshi-line-bot/server/middleware"
)

// Server serves the webhook. Routes live on a Gin engine; the engine sits
// behind a ServeMux and the net/http middleware chain, and cleartext
// HTTP/2 is accepted for callers behind a proxy that speaks it.
type Server struct {
	cfg    Config
	log    *logger.Logger
	engine *gin.Engine
	mux    *http.ServeMux
	chain  []middleware.Middleware
	srv    *http.Server

	mu sync.Mutex
	ln net.Listener
}

// New builds a server with no middleware and no routes.
func New(cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		log:    log.WithComponent("server"),
		engine: gin.New(),
		mux:    http.NewServeMux(),
	}
	s.mux.Handle("/", s.engine)
	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Engine is where routes are registered.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Mount installs the middleware chain (recovery, request ID, tracing,
// body limit, access log) and the probe endpoints.
func (s *Server) Mount(service string, checker endpoint.HealthChecker) {
	s.chain = []middleware.Middleware{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.BodySizeLimit(s.cfg.MaxBodySize),
		middleware.AccessLog(s.log),
	}
	s.engine.GET("/health", endpoint.Health(service, checker))
	s.engine.GET("/ready", endpoint.Ready(service, checker))
	s.engine.GET("/info", endpoint.Info(service))
}

// Handler is the complete request path: middleware, then h2c, then the mux.
func (s *Server) Handler() http.Handler {
	h2 := &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: 2 * time.Minute}
	return middleware.Chain(s.chain...)(h2c.NewHandler(s.mux, h2))
}

// Start binds the listener and serves in the background.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.srv.Handler = s.Handler()
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve stopped", logger.ErrorFields("serve", err))
		}
	}()
	s.log.Info("listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight deliveries for at most ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	grace := s.cfg.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.mu.Lock()
	s.ln = nil
	s.mu.Unlock()
	s.log.Info("stopped")
	return nil
}

// Addr is the bound address while listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

func (s *Server) listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln != nil
}
