package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/billing"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// BillingController serves checkout and purchase history for the signed-in user.
type BillingController struct {
	billing *billing.Service
	log     *logger.Logger
}

func NewBillingController(svc *billing.Service, log *logger.Logger) *BillingController {
	return &BillingController{billing: svc, log: log}
}

// HandleCheckout creates a hosted payment page for the product.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	url, err := bc.billing.CheckoutLink(c.UserContext(), usercontext.GetUserID(c), c.Params("productId"))
	if err != nil {
		return respondError(c, bc.log, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

type purchaseResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name"`
	PricePaidInCents int       `json:"price_paid_in_cents"`
	IsRefunded       bool      `json:"is_refunded"`
	RefundedAt       *string   `json:"refunded_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func toPurchaseResponse(p models.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:               p.ID,
		ProductID:        p.ProductID,
		ProductName:      p.ProductDetails.Data().Name,
		PricePaidInCents: p.PricePaidInCents,
		IsRefunded:       p.IsRefunded(),
		RefundedAt:       formatTimePtr(p.RefundedAt),
		CreatedAt:        p.CreatedAt.UTC(),
	}
}

// HandleListPurchases returns the caller's purchases, newest first.
func (bc *BillingController) HandleListPurchases(c *fiber.Ctx) error {
	purchases, err := bc.billing.ListPurchases(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, bc.log, err)
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	return c.JSON(fiber.Map{"purchases": out})
}

// HandlePurchaseDetails returns one purchase with its receipt lines.
func (bc *BillingController) HandlePurchaseDetails(c *fiber.Ctx) error {
	details, err := bc.billing.PurchaseDetails(c.UserContext(), usercontext.GetUserID(c), c.Params("purchaseId"))
	if err != nil {
		return respondError(c, bc.log, err)
	}
	return c.JSON(fiber.Map{
		"purchase": toPurchaseResponse(*details.Purchase),
		"payment":  details.Payment,
	})
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
