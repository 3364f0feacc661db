package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     string `json:"user_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// HasLocalUser reports whether the session is bound to a live local user row.
func (u UserContext) HasLocalUser() bool {
	return u.IsLoggedIn && u.UserID != ""
}

// Set stores the context and the flat compatibility locals.
func Set(c *fiber.Ctx, u UserContext) {
	c.Locals(KeyUserContext, u)
	c.Locals(KeyFromProtected, u.IsLoggedIn)
	c.Locals(KeyUserID, u.UserID)
	c.Locals(KeyIsAdmin, u.IsAdmin)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the local user id, or "" when the session has none
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}
