// Package server exposes the HTTP API: job submission and polling, catalog
// ingest, index administration and operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/catalog"
	"github.com/hrygo/shelfsight/internal/profile"
	"github.com/hrygo/shelfsight/job"
	"github.com/hrygo/shelfsight/metrics"
	"github.com/hrygo/shelfsight/search"
	"github.com/hrygo/shelfsight/store"
)

type Server struct {
	e *echo.Echo

	Profile *profile.Profile
	Store   *store.Store

	jobs      *job.Service
	processor *catalog.Processor
	index     *search.Index
	rebuilder *search.Rebuilder
	exporter  *metrics.Exporter
}

// NewServer wires the API over the assembled services.
func NewServer(p *profile.Profile, s *store.Store, jobs *job.Service, processor *catalog.Processor, index *search.Index, rebuilder *search.Rebuilder, exporter *metrics.Exporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("32M"))
	e.Use(requestLogger())

	srv := &Server{
		e:         e,
		Profile:   p,
		Store:     s,
		jobs:      jobs,
		processor: processor,
		index:     index,
		rebuilder: rebuilder,
		exporter:  exporter,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", s.health)
	if s.exporter != nil {
		s.e.GET("/metrics", echo.WrapHandler(s.exporter.Handler()))
	}

	api := s.e.Group("/api/v1")
	api.POST("/search", s.submitSearch)
	api.GET("/search/jobs/:id", s.getSearchJob)
	api.POST("/catalog/entries", s.createCatalogEntry)
	api.POST("/index/rebuild", s.triggerRebuild)
	api.GET("/index/stats", s.indexStats)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("http server started", "addr", addr)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shut down http server")
	}
	slog.Info("http server stopped")
	return nil
}

// Echo exposes the router, used by tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
