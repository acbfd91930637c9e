package server

import (
	"errors"
	"log"

	"backend-places/internal/config"
	"backend-places/internal/db"
	"backend-places/internal/place"
	"backend-places/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Querier
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, pool db.Querier, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	place.RegisterRoutes(s.App.Group("/place"), place.NewRepository(s.DB), s.Stream)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// ErrorHandler renders errors as {"detail": ...}. Anything that is not a
// *fiber.Error is an unexpected failure: it is logged and reported as 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := "A server error occurred."

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		detail = fe.Message
	} else {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"detail": detail})
}
