// Package web serves the For You page, its JSON API and the voice event stream.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"foryou/internal/domain"
	"foryou/internal/feed"
	"foryou/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Voice is the dictation surface driven by the page.
type Voice interface {
	Toggle() (domain.Status, error)
	Status() domain.Status
}

// Feed provides the page content.
type Feed interface {
	Updates(ctx context.Context) []domain.Update
	Nav(ctx context.Context) feed.Nav
}

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	KeepAlive         time.Duration
	// Debug runs gin in debug mode.
	Debug bool
}

// Server is the gin HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	cfg        Config
	voice      Voice
	feed       Feed
	hub        *Hub
	log        *logger.Logger
}

func NewServer(cfg Config, voice Voice, content Feed, hub *Hub, log *logger.Logger) (*Server, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("server")

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.Use(recovery(log), requestLogger(log))

	s := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		engine: engine,
		cfg:    cfg,
		voice:  voice,
		feed:   content,
		hub:    hub,
		log:    log,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/for-you")
	})
	s.engine.GET("/for-you", s.handlePage)
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/updates", s.handleUpdates)
	api.GET("/voice/status", s.handleStatus)
	api.POST("/voice/toggle", s.handleToggle)
	api.GET("/voice/events", s.handleEvents)
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.log.Info("HTTP server started", map[string]interface{}{"addr": listener.Addr().String()})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
