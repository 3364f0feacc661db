package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
)

type ApiRouter struct {
	deps *Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPrefix)
		},
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
	}), h.deps.Auth.UserContextMiddleware)

	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	h.registerConsumerRoutes(api)
	h.registerAdminRoutes(api)
}

func (h ApiRouter) registerConsumerRoutes(api fiber.Router) {
	api.Post("/users/sync", middleware.RequireSession, h.deps.Users.HandleSyncUser)
	api.Get("/users/me", middleware.RequireAuth, h.deps.Users.HandleGetMe)

	api.Post("/products/:productId/checkout", middleware.RequireAuth, h.deps.Billing.HandleCheckout)
	api.Get("/purchases", middleware.RequireAuth, h.deps.Billing.HandleListPurchases)
	api.Get("/purchases/:purchaseId", middleware.RequireAuth, h.deps.Billing.HandlePurchaseDetails)

	api.Get("/courses", middleware.RequireAuth, h.deps.Progress.HandleListCourses)
	api.Get("/courses/:courseId/progress", middleware.RequireAuth, h.deps.Progress.HandleCourseProgress)
	api.Post("/lessons/:lessonId/complete", middleware.RequireAuth, h.deps.Progress.HandleCompleteLesson)
	api.Delete("/lessons/:lessonId/complete", middleware.RequireAuth, h.deps.Progress.HandleUncompleteLesson)
}

func (h ApiRouter) registerAdminRoutes(api fiber.Router) {
	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", h.deps.Admin.HandleDashboard)
	admin.Get("/sales", h.deps.Admin.HandleListSales)

	admin.Get("/products", h.deps.Admin.HandleListProducts)
	admin.Post("/products", h.deps.Admin.HandleCreateProduct)
	admin.Get("/products/:productId", h.deps.Admin.HandleGetProduct)
	admin.Put("/products/:productId", h.deps.Admin.HandleUpdateProduct)
	admin.Delete("/products/:productId", h.deps.Admin.HandleDeleteProduct)

	admin.Get("/courses", h.deps.AdminContent.HandleListCourses)
	admin.Post("/courses", h.deps.AdminContent.HandleCreateCourse)
	admin.Get("/courses/:courseId", h.deps.AdminContent.HandleGetCourse)
	admin.Put("/courses/:courseId", h.deps.AdminContent.HandleUpdateCourse)
	admin.Delete("/courses/:courseId", h.deps.AdminContent.HandleDeleteCourse)

	admin.Post("/courses/:courseId/sections", h.deps.AdminContent.HandleCreateSection)
	admin.Put("/courses/:courseId/sections/order", h.deps.AdminContent.HandleReorderSections)
	admin.Put("/sections/:sectionId", h.deps.AdminContent.HandleUpdateSection)
	admin.Delete("/sections/:sectionId", h.deps.AdminContent.HandleDeleteSection)

	// "/lessons/order" must be registered before "/lessons/:lessonId"
	admin.Put("/lessons/order", h.deps.AdminContent.HandleReorderLessons)
	admin.Post("/sections/:sectionId/lessons", h.deps.AdminContent.HandleCreateLesson)
	admin.Put("/sections/:sectionId/lessons/order", h.deps.AdminContent.HandleReorderSectionLessons)
	admin.Put("/lessons/:lessonId", h.deps.AdminContent.HandleUpdateLesson)
	admin.Delete("/lessons/:lessonId", h.deps.AdminContent.HandleDeleteLesson)
}

func NewApiRouter(deps *Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
