package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SectionStatusPublic  = "public"
	SectionStatusPrivate = "private"
)

const (
	LessonStatusPublic  = "public"
	LessonStatusPrivate = "private"
	LessonStatusPreview = "preview"
)

type Course struct {
	ID             string          `gorm:"type:char(36);primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=1,max=255"`
	Description    string          `gorm:"type:text;not null" json:"description" validate:"required"`
	CourseSections []CourseSection `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course_sections,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CourseSection is ordered within its course. The (course_id, sort_order) pair is
// unique so concurrent appends cannot end up sharing a position.
type CourseSection struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	CourseID  string    `gorm:"type:char(36);not null;index:ux_course_sections_course_order,unique,priority:1" json:"course_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=1,max=255"`
	Status    string    `gorm:"type:varchar(20);not null;default:'private'" json:"status" validate:"oneof=public private"`
	Order     int       `gorm:"column:sort_order;not null;index:ux_course_sections_course_order,unique,priority:2" json:"order"`
	Lessons   []Lesson  `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *CourseSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *CourseSection) OrderParentID() string { return s.CourseID }
func (s *CourseSection) SetOrder(order int)    { s.Order = order }

// IsPublic reports whether consumers may see the section.
func (s *CourseSection) IsPublic() bool {
	return s.Status == SectionStatusPublic
}

type Lesson struct {
	ID             string    `gorm:"type:char(36);primaryKey" json:"id"`
	SectionID      string    `gorm:"type:char(36);not null;index:ux_lessons_section_order,unique,priority:1" json:"section_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=1,max=255"`
	Description    *string   `gorm:"type:text" json:"description"`
	YoutubeVideoID string    `gorm:"type:varchar(64);not null" json:"youtube_video_id" validate:"required"`
	Status         string    `gorm:"type:varchar(20);not null;default:'private'" json:"status" validate:"oneof=public private preview"`
	Order          int       `gorm:"column:sort_order;not null;index:ux_lessons_section_order,unique,priority:2" json:"order"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l *Lesson) OrderParentID() string { return l.SectionID }
func (l *Lesson) SetOrder(order int)    { l.Order = order }

// IsVisible reports whether a lesson is reachable by consumers with course access.
func (l *Lesson) IsVisible() bool {
	return l.Status == LessonStatusPublic || l.Status == LessonStatusPreview
}
