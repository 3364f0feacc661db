package router

import (
	"github.com/gofiber/fiber/v2"
)

const webhookPrefix = "/api/webhooks"

type WebhookRouter struct {
	deps *Dependencies
}

// InstallRouter registers the provider webhooks for every method so that a wrong
// method is answered with 405 by the reconciler instead of a routing 404.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.All(webhookPrefix+"/identity", h.deps.Webhooks.HandleIdentityWebhook)
	app.All(webhookPrefix+"/payment", h.deps.Webhooks.HandlePaymentWebhook)
}

func NewWebhookRouter(deps *Dependencies) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}
