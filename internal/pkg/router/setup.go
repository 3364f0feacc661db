package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/controllers"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routes hand requests to.
type Dependencies struct {
	Auth           *middleware.Authenticator
	Webhooks       *controllers.WebhookController
	AdminContent   *controllers.AdminContentController
	Admin          *controllers.AdminController
	Billing        *controllers.BillingController
	Progress       *controllers.ProgressController
	Users          *controllers.UserController
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps *Dependencies) {
	// Webhooks first: they authenticate by signature and must not see the session
	// middleware or the rate limiter.
	setup(app, NewWebhookRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
