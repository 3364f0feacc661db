package models

import "time"

// UserCourseAccess grants a user access to a course. The composite key makes
// granting idempotent.
type UserCourseAccess struct {
	UserID    string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"user_id"`
	CourseID  string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"course_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type UserLessonComplete struct {
	UserID    string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"user_id"`
	LessonID  string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"lesson_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UserCourseAccess) TableName() string {
	return "user_course_accesses"
}

func (UserLessonComplete) TableName() string {
	return "user_lesson_completes"
}
