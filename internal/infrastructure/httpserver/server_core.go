package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/internal/application/services"
	"github.com/henzogomes/git-shame/internal/core/ports"
	customMiddleware "github.com/henzogomes/git-shame/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	TLSCertFile   string
	TLSKeyFile    string
	AdminSecret   string
	StreamEnabled bool
}

// ServerDeps groups the collaborators injected into the server.
type ServerDeps struct {
	RoastService   *services.RoastService
	AvatarService  *services.AvatarService
	CacheRepo      ports.RoastCacheRepository
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	roastSvc       *services.RoastService
	avatarSvc      *services.AvatarService
	cacheRepo      ports.RoastCacheRepository
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		roastSvc:       deps.RoastService,
		avatarSvc:      deps.AvatarService,
		cacheRepo:      deps.CacheRepo,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
