package server

import (
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs HTTP requests in a structured format
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		logLevel := slog.LevelInfo
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		slog.Log(c.UserContext(), logLevel, "HTTP request",
			slog.String("type", "http"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", statusCode),
			slog.Duration("took", time.Since(start)),
			slog.String("ip", c.IP()),
		)
		return err
	}
}

// AdminRequired guards the administrative surface with a bearer token.
func AdminRequired(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			slog.Warn("Admin endpoint hit with no admin token configured")
			return SendForbidden(c, "Administrative surface disabled")
		}

		header := c.Get(fiber.HeaderAuthorization)
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return SendUnauthorized(c, "Bearer token required")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			slog.Warn("Admin token rejected", slog.String("ip", c.IP()))
			return SendForbidden(c, "Invalid admin token")
		}
		return c.Next()
	}
}

// actorID extracts the acting participant identity from the request.
func actorID(c *fiber.Ctx) string {
	return c.Get("X-Actor-ID")
}
