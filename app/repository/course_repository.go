package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"gorm.io/gorm"
)

// CourseSummary is one row of the admin course list.
type CourseSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SectionsCount int64  `json:"sections_count"`
	LessonsCount  int64  `json:"lessons_count"`
	StudentsCount int64  `json:"students_count"`
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) WithTx(tx *gorm.DB) CourseRepository {
	return &courseRepository{db: tx}
}

func (r *courseRepository) ListCourses() ([]CourseSummary, error) {
	var out []CourseSummary
	err := r.db.Table("courses").
		Select("courses.id, courses.name, " +
			"COUNT(DISTINCT course_sections.id) AS sections_count, " +
			"COUNT(DISTINCT lessons.id) AS lessons_count, " +
			"COUNT(DISTINCT user_course_accesses.user_id) AS students_count").
		Joins("LEFT JOIN course_sections ON course_sections.course_id = courses.id").
		Joins("LEFT JOIN lessons ON lessons.section_id = course_sections.id").
		Joins("LEFT JOIN user_course_accesses ON user_course_accesses.course_id = courses.id").
		Group("courses.id, courses.name").
		Order("courses.name ASC").
		Scan(&out).Error
	return out, err
}

func (r *courseRepository) GetCourse(id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourseWithContent loads sections and lessons in display order
func (r *courseRepository) GetCourseWithContent(id string) (*models.Course, error) {
	var course models.Course
	err := r.db.
		Preload("CourseSections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("CourseSections.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) CreateCourse(course *models.Course) error {
	return r.db.Create(course).Error
}

func (r *courseRepository) UpdateCourse(id string, updates map[string]interface{}) error {
	return r.updateExisting(&models.Course{}, id, updates)
}

// DeleteCourse removes a course with its sections, lessons, grants and completions.
// A course still bundled into a product is refused.
func (r *courseRepository) DeleteCourse(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Where("id = ?", id).First(&course).Error; err != nil {
			return err
		}

		var bundled int64
		if err := tx.Model(&models.CourseProduct{}).Where("course_id = ?", id).Count(&bundled).Error; err != nil {
			return err
		}
		if bundled > 0 {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "course is still part of a product"}
		}

		lessonIDs := tx.Model(&models.Lesson{}).
			Select("lessons.id").
			Joins("JOIN course_sections ON course_sections.id = lessons.section_id").
			Where("course_sections.course_id = ?", id)
		if err := tx.Where("lesson_id IN (?)", lessonIDs).Delete(&models.UserLessonComplete{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.UserCourseAccess{}).Error; err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
}

func (r *courseRepository) GetSection(id string) (*models.CourseSection, error) {
	var section models.CourseSection
	if err := r.db.Where("id = ?", id).First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *courseRepository) UpdateSection(id string, updates map[string]interface{}) error {
	return r.updateExisting(&models.CourseSection{}, id, updates)
}

func (r *courseRepository) GetLesson(id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.Where("id = ?", id).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *courseRepository) UpdateLesson(id string, updates map[string]interface{}) error {
	return r.updateExisting(&models.Lesson{}, id, updates)
}

// updateExisting loads the row first so an update that changes nothing is not mistaken
// for a missing row.
func (r *courseRepository) updateExisting(model interface{}, id string, updates map[string]interface{}) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(model).Error; err != nil {
			return err
		}
		return tx.Model(model).Updates(updates).Error
	})
}
