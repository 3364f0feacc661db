package repository

import (
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	GetByID(id string) (*models.User, error)
	GetByExternalID(externalID string) (*models.User, error)
	UpsertByExternalID(user *models.User) error
	UpdateProfile(id string, updates map[string]interface{}) error
	Redact(id string, now time.Time) error
	Count() (int64, error)
}

// CourseRepository manages courses and reads their content for the admin and
// consumer endpoints. Positions of sections and lessons are owned by ordering.Manager.
type CourseRepository interface {
	WithTx(tx *gorm.DB) CourseRepository
	ListCourses() ([]CourseSummary, error)
	GetCourse(id string) (*models.Course, error)
	GetCourseWithContent(id string) (*models.Course, error)
	CreateCourse(course *models.Course) error
	UpdateCourse(id string, updates map[string]interface{}) error
	DeleteCourse(id string) error
	GetSection(id string) (*models.CourseSection, error)
	UpdateSection(id string, updates map[string]interface{}) error
	GetLesson(id string) (*models.Lesson, error)
	UpdateLesson(id string, updates map[string]interface{}) error
}

// ProductRepository manages the storefront catalog
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	List() ([]ProductSummary, error)
	Get(id string) (*ProductDetail, error)
	Create(product *models.Product, courseIDs []string) error
	Update(id string, updates map[string]interface{}, courseIDs []string) error
	Delete(id string) error
}

// PurchaseRepository reads sales for the admin area
type PurchaseRepository interface {
	WithTx(tx *gorm.DB) PurchaseRepository
	ListSales() ([]Sale, error)
}

// ProgressRepository tracks lesson completion
type ProgressRepository interface {
	WithTx(tx *gorm.DB) ProgressRepository
	CanCompleteLesson(userID, lessonID string) (bool, error)
	MarkComplete(userID, lessonID string) error
	UnmarkComplete(userID, lessonID string) error
	CompletedLessonIDs(userID, courseID string) ([]string, error)
	HasCourseAccess(userID, courseID string) (bool, error)
	ListCourseProgress(userID string) ([]CourseProgress, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Course   CourseRepository
	Progress ProgressRepository
	Product  ProductRepository
	Purchase PurchaseRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Course:   NewCourseRepository(db),
		Progress: NewProgressRepository(db),
		Product:  NewProductRepository(db),
		Purchase: NewPurchaseRepository(db),
	}
}
