package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/internal/pkg/reconciler"
	"github.com/ManuelReschke/CourseFox/internal/pkg/webhook"
)

// WebhookController exposes the identity and payment webhook endpoints.
type WebhookController struct {
	rec *reconciler.Reconciler
}

func NewWebhookController(rec *reconciler.Reconciler) *WebhookController {
	return &WebhookController{rec: rec}
}

// HandleIdentityWebhook receives user.* events.
func (wc *WebhookController) HandleIdentityWebhook(c *fiber.Ctx) error {
	res, err := wc.rec.HandleIdentity(c.UserContext(), requestFrom(c))
	return writeWebhookResult(c, res, err)
}

// HandlePaymentWebhook receives payment.* events.
func (wc *WebhookController) HandlePaymentWebhook(c *fiber.Ctx) error {
	res, err := wc.rec.HandlePayment(c.UserContext(), requestFrom(c))
	return writeWebhookResult(c, res, err)
}

// requestFrom copies the raw body; fasthttp reuses the buffer after the handler returns.
func requestFrom(c *fiber.Ctx) reconciler.Request {
	return reconciler.Request{
		Method:  c.Method(),
		Headers: webhook.HeadersFrom(func(name string) string { return c.Get(name) }),
		Body:    append([]byte(nil), c.BodyRaw()...),
	}
}

func writeWebhookResult(c *fiber.Ctx, res *reconciler.Result, err error) error {
	if err != nil {
		return c.Status(reconciler.StatusCode(err)).JSON(fiber.Map{
			"ok":      false,
			"message": reconciler.Message(err),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":         true,
		"outcome":    res.Outcome,
		"event_type": res.EventType,
		"message":    res.Message,
	})
}
