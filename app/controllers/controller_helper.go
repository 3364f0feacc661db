package controllers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

var validate = newValidator()

// newValidator reports fields under their JSON names so error bodies match the request.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// respondError writes the JSON error body for err. Unexpected failures are logged and
// answered without detail.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status := apperror.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	body := fiber.Map{
		"error":   apperror.Code(err),
		"message": apperror.PublicMessage(err),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	return c.Status(status).JSON(body)
}

// bindAndValidate parses the request body into out and runs its validate tags.
func bindAndValidate(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.ValidationFailed("body", "malformed request body")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := lowerFirst(fe.Field())
			return apperror.ValidationFailed(field, field+" failed "+fe.Tag())
		}
		return apperror.ValidationFailed("body", err.Error())
	}
	return nil
}

type orderRequest struct {
	Order []string `json:"order"`
}

// parseOrder reads an id list from a JSON body {"order": [...]} or from a form field
// "order" holding a JSON array.
func parseOrder(c *fiber.Ctx) ([]string, error) {
	var ids []string
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req orderRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return nil, apperror.ValidationFailed("order", "malformed order")
		}
		ids = req.Order
	} else {
		raw := c.FormValue("order")
		if raw == "" {
			return nil, apperror.ValidationFailed("order", "order is required")
		}
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, apperror.ValidationFailed("order", "order must be a JSON array of ids")
		}
	}
	if ids == nil {
		return nil, apperror.ValidationFailed("order", "order is required")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, apperror.ValidationFailed("order", "order contains an empty id")
		}
	}
	return ids, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
