package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/remboglow/facefit/internal/domain"
)

// Recover turns a handler panic into a logged 500 response in the same
// envelope the error handler uses, so clients never see a dropped
// connection or a bare stack trace.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.String("stack", string(debug.Stack())),
				)

				_ = c.Status(domain.ErrInternal.StatusCode).JSON(fiber.Map{
					"error": fiber.Map{
						"code":    domain.ErrInternal.Code,
						"message": domain.ErrInternal.Message,
					},
				})
			}
		}()
		return c.Next()
	}
}
