package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// ProgressController serves a consumer's courses and records lesson completion.
type ProgressController struct {
	courses  repository.CourseRepository
	progress repository.ProgressRepository
	log      *logger.Logger
}

func NewProgressController(courses repository.CourseRepository, progress repository.ProgressRepository, log *logger.Logger) *ProgressController {
	return &ProgressController{courses: courses, progress: progress, log: log}
}

type lessonProgress struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Order     int    `json:"order"`
	Completed bool   `json:"completed"`
}

type sectionProgress struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Order   int              `json:"order"`
	Lessons []lessonProgress `json:"lessons"`
}

// HandleListCourses returns the caller's courses with completion counts.
func (pc *ProgressController) HandleListCourses(c *fiber.Ctx) error {
	courses, err := pc.progress.ListCourseProgress(usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, pc.log, err)
	}
	if courses == nil {
		courses = []repository.CourseProgress{}
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// HandleCourseProgress returns the visible outline of one course with the caller's
// completed lessons marked.
func (pc *ProgressController) HandleCourseProgress(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	courseID := c.Params("courseId")

	course, err := pc.courses.GetCourseWithContent(courseID)
	if err != nil {
		return respondError(c, pc.log, database.Classify(err, "course", courseID))
	}
	allowed, err := pc.progress.HasCourseAccess(userID, course.ID)
	if err != nil {
		return respondError(c, pc.log, err)
	}
	if !allowed {
		return forbidden(c, "no access to this course")
	}

	completedIDs, err := pc.progress.CompletedLessonIDs(userID, course.ID)
	if err != nil {
		return respondError(c, pc.log, err)
	}
	completed := make(map[string]struct{}, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = struct{}{}
	}

	sections := []sectionProgress{}
	total, done := 0, 0
	for _, s := range course.CourseSections {
		if !s.IsPublic() {
			continue
		}
		sp := sectionProgress{ID: s.ID, Name: s.Name, Order: s.Order, Lessons: []lessonProgress{}}
		for _, l := range s.Lessons {
			if !l.IsVisible() {
				continue
			}
			_, ok := completed[l.ID]
			sp.Lessons = append(sp.Lessons, lessonProgress{ID: l.ID, Name: l.Name, Status: l.Status, Order: l.Order, Completed: ok})
			total++
			if ok {
				done++
			}
		}
		sections = append(sections, sp)
	}

	return c.JSON(fiber.Map{
		"course_id":        course.ID,
		"name":             course.Name,
		"description":      course.Description,
		"sections":         sections,
		"lessons_total":    total,
		"lessons_complete": done,
	})
}

func (pc *ProgressController) HandleCompleteLesson(c *fiber.Ctx) error {
	return pc.setComplete(c, true)
}

func (pc *ProgressController) HandleUncompleteLesson(c *fiber.Ctx) error {
	return pc.setComplete(c, false)
}

func (pc *ProgressController) setComplete(c *fiber.Ctx, complete bool) error {
	userID := usercontext.GetUserID(c)
	lessonID := c.Params("lessonId")

	allowed, err := pc.progress.CanCompleteLesson(userID, lessonID)
	if err != nil {
		return respondError(c, pc.log, err)
	}
	if !allowed {
		return forbidden(c, "no access to this lesson")
	}

	if complete {
		err = pc.progress.MarkComplete(userID, lessonID)
	} else {
		err = pc.progress.UnmarkComplete(userID, lessonID)
	}
	if err != nil {
		return respondError(c, pc.log, err)
	}
	return c.JSON(fiber.Map{"ok": true, "completed": complete})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":   "forbidden",
		"message": message,
	})
}
