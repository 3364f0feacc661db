package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/statistics"
)

// AdminController serves the admin overview, the product catalog and the sales list
type AdminController struct {
	repos *repository.Repositories
	stats *statistics.Service
	log   *logger.Logger
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories, stats *statistics.Service, log *logger.Logger) *AdminController {
	return &AdminController{
		repos: repos,
		stats: stats,
		log:   log,
	}
}

// HandleDashboard returns the sales and content figures of the admin dashboard
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	dashboard, err := ac.stats.GetDashboard(c.UserContext())
	if err != nil {
		return ac.handleError(c, "Failed to load statistics", err)
	}

	totalUsers, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to get user count", err)
	}

	return c.JSON(fiber.Map{
		"statistics":  dashboard,
		"total_users": totalUsers,
	})
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	ac.log.Error(message, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_error",
		"message": message,
	})
}

// productRequest links a catalog entry to a product that already exists at the payment
// provider. Images are referenced by URL.
type productRequest struct {
	Name             string   `json:"name" form:"name" validate:"required,min=1,max=255"`
	Description      string   `json:"description" form:"description" validate:"required,min=1"`
	PriceInDollars   *int     `json:"priceInDollars" form:"priceInDollars" validate:"required,min=0"`
	Status           string   `json:"status" form:"status" validate:"omitempty,oneof=public private"`
	ImageURL         string   `json:"imageUrl" form:"imageUrl" validate:"omitempty,url"`
	PaymentProductID string   `json:"paymentProductId" form:"paymentProductId" validate:"omitempty,max=191"`
	CourseIDs        []string `json:"courseIds" form:"courseIds" validate:"omitempty,dive,required"`
}

func (ac *AdminController) HandleListProducts(c *fiber.Ctx) error {
	products, err := ac.repos.Product.List()
	if err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

func (ac *AdminController) HandleGetProduct(c *fiber.Ctx) error {
	productID := c.Params("productId")
	product, err := ac.repos.Product.Get(productID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "product", productID))
	}
	return c.JSON(product)
}

func (ac *AdminController) HandleCreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	if req.PaymentProductID == "" {
		return respondError(c, ac.log, apperror.ValidationFailed("paymentProductId", "paymentProductId failed required"))
	}

	product := &models.Product{
		Name:             req.Name,
		Description:      req.Description,
		PriceInDollars:   *req.PriceInDollars,
		Status:           defaultStatus(req.Status, models.ProductStatusPrivate),
		ImageURL:         req.ImageURL,
		PaymentProductID: req.PaymentProductID,
	}
	if err := ac.repos.Product.Create(product, req.CourseIDs); err != nil {
		return respondError(c, ac.log, database.Classify(err, "product", ""))
	}
	ac.stats.Invalidate(c.UserContext())

	detail, err := ac.repos.Product.Get(product.ID)
	if err != nil {
		return respondError(c, ac.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// HandleUpdateProduct rewrites the product. A missing courseIds keeps the current bundle,
// an empty list clears it. Existing purchases keep their snapshot.
func (ac *AdminController) HandleUpdateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	productID := c.Params("productId")

	updates := map[string]interface{}{
		"name":             req.Name,
		"description":      req.Description,
		"price_in_dollars": *req.PriceInDollars,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.ImageURL != "" {
		updates["image_url"] = req.ImageURL
	}
	if req.PaymentProductID != "" {
		updates["payment_product_id"] = req.PaymentProductID
	}
	if err := ac.repos.Product.Update(productID, updates, req.CourseIDs); err != nil {
		return respondError(c, ac.log, database.Classify(err, "product", productID))
	}
	ac.stats.Invalidate(c.UserContext())

	detail, err := ac.repos.Product.Get(productID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "product", productID))
	}
	return c.JSON(detail)
}

func (ac *AdminController) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if err := ac.repos.Product.Delete(productID); err != nil {
		return respondError(c, ac.log, database.Classify(err, "product", productID))
	}
	ac.stats.Invalidate(c.UserContext())
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListSales returns every purchase, newest first
func (ac *AdminController) HandleListSales(c *fiber.Ctx) error {
	sales, err := ac.repos.Purchase.ListSales()
	if err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"sales": sales})
}
