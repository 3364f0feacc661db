package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// Authenticator resolves the session token of a request into a user context.
type Authenticator struct {
	verifier *SessionVerifier
	users    repository.UserRepository
	log      *logger.Logger
}

func NewAuthenticator(verifier *SessionVerifier, users repository.UserRepository, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, users: users, log: log}
}

// UserContextMiddleware sets up the user context for every request. Requests without a
// valid token continue as anonymous; the Require* handlers decide what that means.
func (a *Authenticator) UserContextMiddleware(c *fiber.Ctx) error {
	raw := extractSessionToken(c)
	if raw == "" {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	claims, err := a.verifier.Verify(raw)
	if err != nil {
		a.log.Debug("session token rejected", "path", c.Path(), "error", err)
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	userCtx := usercontext.UserContext{
		ExternalID: claims.Subject,
		IsLoggedIn: true,
	}
	if claims.DBID != "" {
		user, err := a.users.GetByID(claims.DBID)
		switch {
		case err == nil && user.ExternalUserID == claims.Subject:
			// role comes from the row, not the token, so a demotion applies at once
			userCtx.UserID = user.ID
			userCtx.Name = user.Name
			userCtx.IsAdmin = user.IsAdmin()
		case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
			a.log.Debug("session user not found locally", "external_id", claims.Subject, "db_id", claims.DBID)
		default:
			return err
		}
	}
	usercontext.Set(c, userCtx)
	return c.Next()
}

func extractSessionToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Cookies(SessionCookie))
}

// RequireSession ensures a verified session token. The local user row may not exist yet.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return unauthorized(c, "login required")
	}
	return c.Next()
}

// RequireAuth ensures a verified session bound to a live local user.
func RequireAuth(c *fiber.Ctx) error {
	u := usercontext.GetUserContext(c)
	if !u.IsLoggedIn {
		return unauthorized(c, "login required")
	}
	if !u.HasLocalUser() {
		return unauthorized(c, "user not synced")
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin.
func RequireAdmin(c *fiber.Ctx) error {
	u := usercontext.GetUserContext(c)
	if !u.HasLocalUser() {
		return unauthorized(c, "login required")
	}
	if !u.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}
