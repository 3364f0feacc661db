package models

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseSection{},
		&Lesson{},
		&Product{},
		&CourseProduct{},
		&Purchase{},
		&UserCourseAccess{},
		&UserLessonComplete{},
	}
}
