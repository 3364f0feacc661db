package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"gorm.io/gorm"
)

// ProductSummary is one row of the admin product list.
type ProductSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	PriceInDollars int    `json:"price_in_dollars"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	CoursesCount   int64  `json:"courses_count"`
	CustomersCount int64  `json:"customers_count"`
}

// ProductDetail is a product with the ids of the courses it bundles.
type ProductDetail struct {
	models.Product
	CourseIDs []string `json:"course_ids"`
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) List() ([]ProductSummary, error) {
	var out []ProductSummary
	err := r.db.Table("products").
		Select("products.id, products.name, products.status, products.price_in_dollars, " +
			"products.description, products.image_url, " +
			"COUNT(DISTINCT course_products.course_id) AS courses_count, " +
			"COUNT(DISTINCT purchases.user_id) AS customers_count").
		Joins("LEFT JOIN purchases ON purchases.product_id = products.id").
		Joins("LEFT JOIN course_products ON course_products.product_id = products.id").
		Group("products.id, products.name, products.status, products.price_in_dollars, products.description, products.image_url").
		Order("products.name ASC").
		Scan(&out).Error
	return out, err
}

func (r *productRepository) Get(id string) (*ProductDetail, error) {
	var p models.Product
	if err := r.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	ids := []string{}
	err := r.db.Model(&models.CourseProduct{}).
		Where("product_id = ?", id).
		Order("course_id").
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: p, CourseIDs: ids}, nil
}

// Create inserts the product and its course bundle in one transaction.
func (r *productRepository) Create(product *models.Product, courseIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkCoursesExist(tx, courseIDs); err != nil {
			return err
		}
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		return replaceBundle(tx, product.ID, courseIDs)
	})
}

// Update writes the product columns and, when courseIDs is not nil, replaces the bundle.
func (r *productRepository) Update(id string, updates map[string]interface{}, courseIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&p).Updates(updates).Error; err != nil {
				return err
			}
		}
		if courseIDs == nil {
			return nil
		}
		if err := checkCoursesExist(tx, courseIDs); err != nil {
			return err
		}
		return replaceBundle(tx, id, courseIDs)
	})
}

// Delete removes a product that was never sold. Sold products keep their row so
// purchase history stays intact; they can be made private instead.
func (r *productRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		var sold int64
		if err := tx.Model(&models.Purchase{}).Where("product_id = ?", id).Count(&sold).Error; err != nil {
			return err
		}
		if sold > 0 {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "product has purchases; make it private instead"}
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CourseProduct{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

func checkCoursesExist(tx *gorm.DB, courseIDs []string) error {
	unique := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	var found int64
	if err := tx.Model(&models.Course{}).Where("id IN ?", courseIDs).Count(&found).Error; err != nil {
		return err
	}
	if found != int64(len(unique)) {
		return apperror.ValidationFailed("courseIds", "courseIds contains an unknown course")
	}
	return nil
}

func replaceBundle(tx *gorm.DB, productID string, courseIDs []string) error {
	if err := tx.Where("product_id = ?", productID).Delete(&models.CourseProduct{}).Error; err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(courseIDs))
	rows := make([]models.CourseProduct, 0, len(courseIDs))
	for _, id := range courseIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, models.CourseProduct{CourseID: id, ProductID: productID})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}
