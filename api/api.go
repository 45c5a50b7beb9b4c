package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	store         database.Storage
}

func NewAPIServer(listenAddress string, store database.Storage) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "course-market",
			BodyLimit:    6 * 1024 * 1024,
			ErrorHandler: errorHandler,
		}),
		listenAddress: listenAddress,
		store:         store,
	}
}

// errorHandler renders errors that escape handlers in the response envelope
func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Code, e.Message, "HTTP_ERROR")
	}
	return response.FromError(c, err)
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}
