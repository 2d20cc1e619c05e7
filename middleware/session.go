package middleware

import (
	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const sessionKey = "session_id"

// PanelSession makes sure every visitor has a session and stores its id
// in the request locals. Anonymous sessions are fine; there are no user
// accounts.
func PanelSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return utils.InternalServerError("Failed to load session", err)
		}

		id := sess.ID()
		if sess.Fresh() {
			sess.Set("panel", true)
			if err := sess.Save(); err != nil {
				return utils.InternalServerError("Failed to save session", err)
			}
		}

		c.Locals(sessionKey, id)
		return c.Next()
	}
}

// SessionID returns the id stored by PanelSession, or "" outside of it
func SessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals(sessionKey).(string); ok {
		return id
	}
	return ""
}

// WithSessionID stores id directly; used where the session was resolved
// elsewhere
func WithSessionID(c *fiber.Ctx, id string) {
	c.Locals(sessionKey, id)
}
