// Package server is the local companion agent: a small HTTP API that lets a
// browser player or another process feed playback events into the tracker
// and follow notifications over a websocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/notify"
	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Deps wires a Server.
type Deps struct {
	Progress *service.ProgressService
	Hub      *notify.Hub
	Store    repository.KVStore
	Logger   *zap.Logger
}

type Server struct {
	app       *echo.Echo
	progress  *service.ProgressService
	hub       *notify.Hub
	store     repository.KVStore
	validator *Validator
	log       *zap.Logger
}

func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		app:       echo.New(),
		progress:  deps.Progress,
		hub:       deps.Hub,
		store:     deps.Store,
		validator: NewValidator(),
		log:       log,
	}
	s.app.HideBanner = true
	s.app.HidePort = true
	s.routes()
	return s
}

func (s *Server) routes() {
	app := s.app
	registerLivenessProbe(app, s.store)

	app.Use(echo_middleware.RequestID())
	app.Use(Logging(s.log, func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().RequestURI, "/healthz")
	}))
	app.Use(ErrorHandling(s.log))

	createEndpoint(app, &endpoint{
		apiVersion: "api/v1",
		groups: []*apiGroup{
			{
				prefix: "/courses/:courseId",
				routes: []*route{
					{"GET", "/progress", s.handleProgress, nil},
					{"POST", "/sync", s.handleSync, nil},
					{"POST", "/lessons/:lessonId/playback", s.handlePlayback, nil},
					{"POST", "/lessons/:lessonId/complete", s.handleComplete, nil},
				},
			},
			{
				prefix: "/ws",
				routes: []*route{
					{"GET", "/notifications", WithHeartbeat(s.streamNotifications), nil},
				},
			},
		},
	})
	printRoutes(app, s.log)
}

func registerLivenessProbe(app *echo.Echo, store repository.KVStore) {
	app.GET("/healthz", func(c echo.Context) error {
		if store == nil || store.Ping(c.Request().Context()) == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("companion agent listening", zap.String("server.address", addr))
		errCh <- s.app.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
