package billing

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetProduct(id string) (*models.Product, error)
	GetProductCourseIDs(productID string) ([]string, error)
	GetUser(id string) (*models.User, error)
	GrantCourseAccess(userID string, courseIDs []string) (int64, error)
	CreatePurchaseIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error)
	UserOwnsProduct(userID, productID string) (bool, error)
	ListPurchasesByUser(userID string) ([]models.Purchase, error)
	GetPurchaseForUser(userID, purchaseID string) (*models.Purchase, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) GetProduct(id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetProductCourseIDs(productID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.CourseProduct{}).
		Where("product_id = ?", productID).
		Order("course_id").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *gormRepository) GetUser(id string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GrantCourseAccess inserts missing grants and leaves existing ones untouched. It returns
// the number of new grants.
func (r *gormRepository) GrantCourseAccess(userID string, courseIDs []string) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	grants := make([]models.UserCourseAccess, 0, len(courseIDs))
	for _, id := range courseIDs {
		grants = append(grants, models.UserCourseAccess{UserID: userID, CourseID: id})
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&grants)
	return tx.RowsAffected, tx.Error
}

// CreatePurchaseIfNotExists inserts the purchase unless one with the same payment session
// id exists. It reports whether a row was created and returns the stored row.
func (r *gormRepository) CreatePurchaseIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_session_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(purchase)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Purchase
	if err := r.db.Where("payment_session_id = ?", purchase.PaymentSessionID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// UserOwnsProduct is true when a non-refunded purchase exists.
func (r *gormRepository) UserOwnsProduct(userID, productID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).
		Where("user_id = ? AND product_id = ? AND refunded_at IS NULL", userID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) ListPurchasesByUser(userID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (r *gormRepository) GetPurchaseForUser(userID, purchaseID string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("id = ? AND user_id = ?", purchaseID, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
