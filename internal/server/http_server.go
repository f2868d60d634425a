// Package server wires the echo engine and process-level middleware.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "go.jumpsca.re/runestone/api/echo"
	"go.jumpsca.re/runestone/log"
)

// HTTPServer runs the authentication API over HTTP.
type HTTPServer struct {
	echo   *echo.Echo
	server *http.Server
	logger log.Logger
}

// NewHTTPServer builds the echo engine, registers the API routes and the
// operational endpoints, and wraps everything in an http.Server with
// sane timeouts.
func NewHTTPServer(addr string, api *authapi.AuthAPI, logger log.Logger) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	api.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &HTTPServer{echo: e, server: srv, logger: logger}
}

// Start blocks serving requests until the listener fails or Shutdown is
// called. A clean shutdown returns nil.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.server.Addr})
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(c.Request().Context(), "Handled request", map[string]interface{}{
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			})
			return nil
		}
	}
}
