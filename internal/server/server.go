// Package server is the HTTP and WebSocket surface. Handlers parse and
// validate transport concerns, then delegate to the services; no business
// rules live here.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/askbird/askbird/internal/app"
	"github.com/askbird/askbird/internal/bus"
	"github.com/askbird/askbird/internal/config"
	appErrors "github.com/askbird/askbird/internal/errors"
	"github.com/askbird/askbird/internal/feature"
	"github.com/askbird/askbird/internal/follow"
	"github.com/askbird/askbird/internal/vote"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	app         *app.Service
	votes       *vote.Service
	follows     *follow.Service
	features    *feature.Service
	hub         *bus.Hub
	pool        *pgxpool.Pool
	redisClient *goredis.Client
	voteLimiter *actorRateLimiter
	startTime   time.Time
}

// NewServer wires handlers to services. pool and redisClient are used for
// readiness checks only; redisClient may be nil when running single-instance.
func NewServer(cfg *config.Config, appService *app.Service, votes *vote.Service, follows *follow.Service, features *feature.Service, hub *bus.Hub, pool *pgxpool.Pool, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(appErrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         appService,
		votes:       votes,
		follows:     follows,
		features:    features,
		hub:         hub,
		pool:        pool,
		redisClient: redisClient,
		voteLimiter: newActorRateLimiter(cfg.VoteRatePerSecond, cfg.VoteRateBurst),
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
