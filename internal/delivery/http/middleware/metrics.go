package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tile-microservice/internal/metrics"
)

// Metrics пишет длительность и статус запросов. Метка route - шаблон маршрута, а не путь.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start).Seconds())
		return err
	}
}
