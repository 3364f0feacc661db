package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/accounts"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// UserController serves the signed-in user's own account.
type UserController struct {
	accounts *accounts.Service
	users    repository.UserRepository
	log      *logger.Logger
}

func NewUserController(svc *accounts.Service, users repository.UserRepository, log *logger.Logger) *UserController {
	return &UserController{accounts: svc, users: users, log: log}
}

// HandleGetMe returns the local account of the caller.
func (uc *UserController) HandleGetMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	user, err := uc.users.GetByID(userID)
	if err != nil {
		return respondError(c, uc.log, database.Classify(err, "user", userID))
	}
	return c.JSON(user)
}

// HandleSyncUser pulls the caller's profile from the identity provider and writes the
// local id back into the provider's metadata. Works before the local row exists.
func (uc *UserController) HandleSyncUser(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	user, err := uc.accounts.SyncFromProvider(c.UserContext(), userCtx.ExternalID)
	if err != nil {
		return respondError(c, uc.log, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": user})
}
