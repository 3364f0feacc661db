package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseProgress is one course of a consumer's library. Counts cover public sections and
// visible lessons only.
type CourseProgress struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	SectionsCount   int64  `json:"sections_count"`
	LessonsCount    int64  `json:"lessons_count"`
	LessonsComplete int64  `json:"lessons_complete"`
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) WithTx(tx *gorm.DB) ProgressRepository {
	return &progressRepository{db: tx}
}

// CanCompleteLesson reports whether the user has access to the course of a visible lesson
// in a public section.
func (r *progressRepository) CanCompleteLesson(userID, lessonID string) (bool, error) {
	var count int64
	err := r.db.Table("lessons").
		Joins("JOIN course_sections ON course_sections.id = lessons.section_id").
		Joins("JOIN user_course_accesses ON user_course_accesses.course_id = course_sections.course_id").
		Where("lessons.id = ? AND user_course_accesses.user_id = ?", lessonID, userID).
		Where("course_sections.status = ?", models.SectionStatusPublic).
		Where("lessons.status IN ?", []string{models.LessonStatusPublic, models.LessonStatusPreview}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkComplete is idempotent
func (r *progressRepository) MarkComplete(userID, lessonID string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserLessonComplete{UserID: userID, LessonID: lessonID}).Error
}

func (r *progressRepository) UnmarkComplete(userID, lessonID string) error {
	return r.db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Delete(&models.UserLessonComplete{}).Error
}

func (r *progressRepository) CompletedLessonIDs(userID, courseID string) ([]string, error) {
	var ids []string
	err := r.db.Table("user_lesson_completes").
		Joins("JOIN lessons ON lessons.id = user_lesson_completes.lesson_id").
		Joins("JOIN course_sections ON course_sections.id = lessons.section_id").
		Where("user_lesson_completes.user_id = ? AND course_sections.course_id = ?", userID, courseID).
		Pluck("user_lesson_completes.lesson_id", &ids).Error
	return ids, err
}

func (r *progressRepository) HasCourseAccess(userID, courseID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserCourseAccess{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// ListCourseProgress returns the courses the user has access to, ordered by name.
func (r *progressRepository) ListCourseProgress(userID string) ([]CourseProgress, error) {
	var out []CourseProgress
	err := r.db.Table("courses").
		Select("courses.id, courses.name, courses.description, "+
			"COUNT(DISTINCT course_sections.id) AS sections_count, "+
			"COUNT(DISTINCT lessons.id) AS lessons_count, "+
			"COUNT(DISTINCT user_lesson_completes.lesson_id) AS lessons_complete").
		Joins("JOIN user_course_accesses ON user_course_accesses.course_id = courses.id AND user_course_accesses.user_id = ?", userID).
		Joins("LEFT JOIN course_sections ON course_sections.course_id = courses.id AND course_sections.status = ?", models.SectionStatusPublic).
		Joins("LEFT JOIN lessons ON lessons.section_id = course_sections.id AND lessons.status IN ?",
			[]string{models.LessonStatusPublic, models.LessonStatusPreview}).
		Joins("LEFT JOIN user_lesson_completes ON user_lesson_completes.lesson_id = lessons.id AND user_lesson_completes.user_id = ?", userID).
		Group("courses.id, courses.name, courses.description").
		Order("courses.name ASC").
		Scan(&out).Error
	return out, err
}
