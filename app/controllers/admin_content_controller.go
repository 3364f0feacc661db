package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/ordering"
)

// AdminContentController edits courses and their ordered sections and lessons. Every
// handler is terminal; none continues into another action.
type AdminContentController struct {
	courses  repository.CourseRepository
	sections *ordering.Manager
	lessons  *ordering.Manager
	log      *logger.Logger
}

func NewAdminContentController(courses repository.CourseRepository, sections, lessons *ordering.Manager, log *logger.Logger) *AdminContentController {
	return &AdminContentController{courses: courses, sections: sections, lessons: lessons, log: log}
}

type courseRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" form:"description" validate:"required,min=1"`
}

type sectionRequest struct {
	Name   string `json:"name" form:"name" validate:"required,min=1,max=255"`
	Status string `json:"status" form:"status" validate:"omitempty,oneof=public private"`
}

type lessonRequest struct {
	Name           string  `json:"name" form:"name" validate:"required,min=1,max=255"`
	Status         string  `json:"status" form:"status" validate:"omitempty,oneof=public private preview"`
	YoutubeVideoID string  `json:"youtubeVideoId" form:"youtubeVideoId" validate:"required"`
	Description    *string `json:"description" form:"description"`
}

func (ac *AdminContentController) HandleListCourses(c *fiber.Ctx) error {
	courses, err := ac.courses.ListCourses()
	if err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (ac *AdminContentController) HandleCreateCourse(c *fiber.Ctx) error {
	var req courseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	course := &models.Course{Name: req.Name, Description: req.Description}
	if err := ac.courses.CreateCourse(course); err != nil {
		return respondError(c, ac.log, database.Classify(err, "course", ""))
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (ac *AdminContentController) HandleUpdateCourse(c *fiber.Ctx) error {
	var req courseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	courseID := c.Params("courseId")
	err := ac.courses.UpdateCourse(courseID, map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
	})
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "course", courseID))
	}
	course, err := ac.courses.GetCourse(courseID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "course", courseID))
	}
	return c.JSON(course)
}

// HandleDeleteCourse removes a course with all of its content. Courses that are still
// sold as part of a product answer 409.
func (ac *AdminContentController) HandleDeleteCourse(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	if err := ac.courses.DeleteCourse(courseID); err != nil {
		return respondError(c, ac.log, database.Classify(err, "course", courseID))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetCourse returns a course with its sections and lessons in position order.
func (ac *AdminContentController) HandleGetCourse(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	course, err := ac.courses.GetCourseWithContent(courseID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "course", courseID))
	}
	return c.JSON(course)
}

func (ac *AdminContentController) HandleCreateSection(c *fiber.Ctx) error {
	var req sectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	section := &models.CourseSection{
		CourseID: c.Params("courseId"),
		Name:     req.Name,
		Status:   defaultStatus(req.Status, models.SectionStatusPrivate),
	}
	if err := ac.sections.InsertAtEnd(c.UserContext(), section); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(section)
}

// HandleUpdateSection edits name and status. The position only changes through a reorder.
func (ac *AdminContentController) HandleUpdateSection(c *fiber.Ctx) error {
	var req sectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	sectionID := c.Params("sectionId")
	updates := map[string]interface{}{"name": req.Name}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if err := ac.courses.UpdateSection(sectionID, updates); err != nil {
		return respondError(c, ac.log, database.Classify(err, "section", sectionID))
	}
	section, err := ac.courses.GetSection(sectionID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "section", sectionID))
	}
	return c.JSON(section)
}

func (ac *AdminContentController) HandleReorderSections(c *fiber.Ctx) error {
	ids, err := parseOrder(c)
	if err != nil {
		return respondError(c, ac.log, err)
	}
	if err := ac.sections.Reorder(c.UserContext(), c.Params("courseId"), ids); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (ac *AdminContentController) HandleDeleteSection(c *fiber.Ctx) error {
	if err := ac.sections.Delete(c.UserContext(), c.Params("sectionId")); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ac *AdminContentController) HandleCreateLesson(c *fiber.Ctx) error {
	var req lessonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	lesson := &models.Lesson{
		SectionID:      c.Params("sectionId"),
		Name:           req.Name,
		Status:         defaultStatus(req.Status, models.LessonStatusPrivate),
		YoutubeVideoID: req.YoutubeVideoID,
		Description:    req.Description,
	}
	if err := ac.lessons.InsertAtEnd(c.UserContext(), lesson); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (ac *AdminContentController) HandleUpdateLesson(c *fiber.Ctx) error {
	var req lessonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, ac.log, err)
	}
	lessonID := c.Params("lessonId")
	updates := map[string]interface{}{
		"name":             req.Name,
		"youtube_video_id": req.YoutubeVideoID,
		"description":      req.Description,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if err := ac.courses.UpdateLesson(lessonID, updates); err != nil {
		return respondError(c, ac.log, database.Classify(err, "lesson", lessonID))
	}
	lesson, err := ac.courses.GetLesson(lessonID)
	if err != nil {
		return respondError(c, ac.log, database.Classify(err, "lesson", lessonID))
	}
	return c.JSON(lesson)
}

func (ac *AdminContentController) HandleReorderSectionLessons(c *fiber.Ctx) error {
	ids, err := parseOrder(c)
	if err != nil {
		return respondError(c, ac.log, err)
	}
	if err := ac.lessons.Reorder(c.UserContext(), c.Params("sectionId"), ids); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleReorderLessons reorders lessons when the caller only knows their ids. The ids
// must all belong to one section.
func (ac *AdminContentController) HandleReorderLessons(c *fiber.Ctx) error {
	ids, err := parseOrder(c)
	if err != nil {
		return respondError(c, ac.log, err)
	}
	sectionID, err := ac.lessons.ResolveParent(c.UserContext(), ids)
	if err != nil {
		return respondError(c, ac.log, err)
	}
	if err := ac.lessons.Reorder(c.UserContext(), sectionID, ids); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.JSON(fiber.Map{"ok": true, "section_id": sectionID})
}

func (ac *AdminContentController) HandleDeleteLesson(c *fiber.Ctx) error {
	if err := ac.lessons.Delete(c.UserContext(), c.Params("lessonId")); err != nil {
		return respondError(c, ac.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func defaultStatus(status, fallback string) string {
	if status == "" {
		return fallback
	}
	return status
}
