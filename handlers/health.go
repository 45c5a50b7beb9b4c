package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/utils/cache"
)

// HandleCheckHealth reports database and cache reachability. The cache is
// optional; a nil cache reports "disabled".
func HandleCheckHealth(c *fiber.Ctx, store database.Storage, redisCache *cache.RedisCache) error {
	status := fiber.Map{"status": "ok", "database": "ok", "cache": "disabled"}
	code := fiber.StatusOK

	if err := store.HealthCheck(); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = fiber.StatusServiceUnavailable
	}

	if redisCache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			status["cache"] = err.Error()
		} else {
			status["cache"] = "ok"
		}
	}

	return c.Status(code).JSON(status)
}
