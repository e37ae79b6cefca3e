package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/auth"
	"github.com/Rida-Lamiini/Chat-app/internal/presence"
	"github.com/Rida-Lamiini/Chat-app/internal/storage"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// Server is the local bridge between a browser tab and the sync layer.
// REST covers signup/login and the user directory; everything live goes
// over the websocket.
type Server struct {
	store    store.Store
	blobs    storage.BlobStore
	authSvc  *auth.Service
	tokens   *auth.TokenManager
	presence *presence.Tracker
	log      *zap.SugaredLogger
}

func NewServer(st store.Store, blobs storage.BlobStore, authSvc *auth.Service, tokens *auth.TokenManager, pres *presence.Tracker, log *zap.SugaredLogger) *Server {
	return &Server{store: st, blobs: blobs, authSvc: authSvc, tokens: tokens, presence: pres, log: log}
}

func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Post("/api/signup", s.handleSignup)
	app.Post("/api/login", s.handleLogin)
	app.Get("/api/users", s.requireAuth, s.handleListUsers)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleWS))

	return app
}
