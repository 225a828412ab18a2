package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests without the configured key. An empty key disables the check.
func RequireAPIKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}
		got := c.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return fail(c, fiber.StatusUnauthorized, errors.New("invalid api key"))
		}
		return c.Next()
	}
}

// requestLogger logs every request with its outcome.
func requestLogger(c *fiber.Ctx) error {
	err := c.Next()
	slog.Debug("admin request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"ip", c.IP())
	if err != nil {
		slog.Error("admin request failed", "path", c.Path(), "error", err)
	}
	return err
}

// NewApp builds the fiber app serving the handler. /health stays public.
func NewApp(h *Handler, apiKey string) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(requestLogger)
	app.Get("/health", h.HandleHealth)
	app.Use(RequireAPIKey(apiKey))
	h.RegisterRoutes(app)

	return app
}

// Serve runs the app on addr until ctx is canceled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin API listening", "address", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("admin API stopping")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("shutting down admin API: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("admin API on %s: %w", addr, err)
		}
		return nil
	}
}
