package ordering

import (
	"github.com/ManuelReschke/CourseFox/app/models"
)

// Item is a row that lives at a position among its siblings.
type Item interface {
	OrderParentID() string
	SetOrder(order int)
}

// Collection describes one ordered table and the table owning it.
type Collection struct {
	Name         string
	ParentName   string
	ParentColumn string
	newItem      func() interface{}
	newParent    func() interface{}
}

var Sections = Collection{
	Name:         "section",
	ParentName:   "course",
	ParentColumn: "course_id",
	newItem:      func() interface{} { return &models.CourseSection{} },
	newParent:    func() interface{} { return &models.Course{} },
}

var Lessons = Collection{
	Name:         "lesson",
	ParentName:   "section",
	ParentColumn: "section_id",
	newItem:      func() interface{} { return &models.Lesson{} },
	newParent:    func() interface{} { return &models.CourseSection{} },
}
