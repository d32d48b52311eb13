package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/akave-ai/returnall/internal/capture"
	"github.com/akave-ai/returnall/internal/config"
	"github.com/akave-ai/returnall/internal/handler"
	"github.com/akave-ai/returnall/internal/logsink"
	"github.com/akave-ai/returnall/internal/metrics"
	"github.com/akave-ai/returnall/internal/observability"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo    *echo.Echo
	Config  *config.Config
	Metrics *metrics.Metrics // nil when metrics are disabled
	logger  zerolog.Logger
}

// New builds the Echo server and registers routes.
// nrApp may be nil; the sink is owned by the caller.
func New(cfg *config.Config, logger zerolog.Logger, sink logsink.Sink, nrApp *newrelic.Application) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second
	if cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	e.Use(middleware.Recover())
	e.Use(accessLog(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowCredentials: true,
		// Reflect the caller's Origin so credentialed requests from any origin work.
		UnsafeWildcardOriginWithAllowCredentials: true,
		ExposeHeaders:                            []string{echo.HeaderContentLength},
	}))
	if cfg.Server.MaxBodySize != "" {
		e.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))
	}
	e.Use(observability.Middleware(nrApp))

	var m *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		m = metrics.New()
		e.GET(cfg.Observability.Metrics.Path, echo.WrapHandler(m.Handler()))
	}

	captureHandler := &handler.CaptureHandler{
		Capturer:   capture.New(),
		Sink:       sink,
		Metrics:    m,
		Logger:     logger,
		Decompress: cfg.Body.Decompress,
		TrustProxy: cfg.Server.TrustProxy,
	}

	e.GET("/", handler.Root)
	captureHandler.Register(e)

	return &Server{Echo: e, Config: cfg, Metrics: m, logger: logger}
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + s.Config.Server.Port
		s.logger.Info().Str("addr", addr).Msg("server listening")
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		timeout := time.Duration(s.Config.Server.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info().Msg("shutting down server")
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func accessLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil || v.Status >= http.StatusBadRequest {
				event = logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
