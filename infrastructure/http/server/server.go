package server

import (
	"chat-presence/observability"
	"chat-presence/services"
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const userHeader = "user"

type Server struct {
	app      *fiber.App
	log      *slog.Logger
	presence services.IPresenceService
	messages services.IMessageService
	monitor  *observability.SweepMonitor
}

// NewServer builds the Fiber app and its routes. accessLog toggles the request logger middleware.
func NewServer(
	log *slog.Logger,
	presence services.IPresenceService,
	messages services.IMessageService,
	monitor *observability.SweepMonitor,
	accessLog bool,
) *Server {
	s := &Server{log: log, presence: presence, messages: messages, monitor: monitor}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Header and query values outlive the request once stored in a message
		Immutable:    true,
		ErrorHandler: s.errorHandler,
	})
	s.app.Use(recover.New())
	if accessLog {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	s.app.Use(cors.New())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.health)

	s.app.Post("/participants", s.join)
	s.app.Get("/participants", s.listParticipants)

	s.app.Post("/messages", s.postMessage)
	s.app.Get("/messages", s.listMessages)

	s.app.Post("/status", s.heartbeat)
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks until the server is shut down.
func (s *Server) Listen(addr string) error {
	s.log.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Serve accepts connections on an already bound listener until shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("HTTP server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}
