package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/scantrail/scantrail/internal/app/repository"
	"github.com/scantrail/scantrail/internal/app/service"
	"github.com/scantrail/scantrail/internal/auth"
	inthttp "github.com/scantrail/scantrail/internal/http/handler"
	"github.com/scantrail/scantrail/internal/http/middleware"
	"github.com/scantrail/scantrail/internal/render"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure and domain dependencies required by
// the HTTP server. Everything is injected explicitly; there is no ambient
// client state.
type Dependencies struct {
	Logger        *zap.Logger
	Postgres      *pgxpool.Pool
	Redis         *redis.Client
	NATS          *nats.Conn
	JetStream     nats.JetStreamContext
	Codes         repository.QRCodeRepository
	Service       service.QRCodeService
	Cache         service.ResolveCache
	Filter        *service.TokenFilter
	ScanPublisher *service.ScanPublisher
	Auth          *auth.Manager
	Renderer      render.Renderer
	BaseURL       string
	HomeURL       string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app, primarily for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:        s.deps.Logger,
		Codes:         s.deps.Codes,
		Cache:         s.deps.Cache,
		Filter:        s.deps.Filter,
		ScanPublisher: s.deps.ScanPublisher,
		HomeURL:       s.deps.HomeURL,
	})
	redirectHandler.Register(s.app)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:   s.deps.Logger,
		Service:  s.deps.Service,
		Renderer: s.deps.Renderer,
		Auth:     middleware.RequireAuth(s.deps.Auth, s.deps.Logger),
		BaseURL:  s.deps.BaseURL,
	})
	apiHandler.Register(s.app)
}
