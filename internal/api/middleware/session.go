package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/remboglow/facefit/internal/domain"
)

// Identity cookies. The user cookie is long-lived so the free-tier quota
// survives browser restarts; the session cookie dies with the browser.
const (
	CookieUserID    = "facefit_user_id"
	CookieSessionID = "facefit_session_id"

	userCookieTTL = 365 * 24 * time.Hour
)

const localIdentity = "identity"

// Session assigns anonymous identity cookies on first contact and exposes
// the identity to handlers via locals.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Cookies(CookieUserID)
		if _, err := uuid.Parse(userID); err != nil {
			userID = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     CookieUserID,
				Value:    userID,
				Expires:  time.Now().Add(userCookieTTL),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Path:     "/",
			})
		}

		sessionID := c.Cookies(CookieSessionID)
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
			// No Expires; the browser drops it when the session ends.
			c.Cookie(&fiber.Cookie{
				Name:     CookieSessionID,
				Value:    sessionID,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Path:     "/",
			})
		}

		c.Locals(localIdentity, domain.Identity{
			UserID:    userID,
			SessionID: sessionID,
		})

		return c.Next()
	}
}

// GetIdentity returns the request's identity set by the Session middleware.
func GetIdentity(c *fiber.Ctx) (domain.Identity, error) {
	ident, ok := c.Locals(localIdentity).(domain.Identity)
	if !ok {
		return domain.Identity{}, domain.ErrInternal
	}
	return ident, nil
}
