package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS - тайлы запрашиваются картой с другого origin, поэтому по умолчанию разрешены все
func CORS(origins string) fiber.Handler {
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Content-Type,Accept,Accept-Language,Authorization,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		// с "*" credentials запрещены
		AllowCredentials: origins != "*",
	})
}
