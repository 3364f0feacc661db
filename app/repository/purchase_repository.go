package repository

import (
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

// Sale is one purchase as listed in the admin sales view.
type Sale struct {
	ID               string     `json:"id"`
	ProductName      string     `json:"product_name"`
	CustomerName     string     `json:"customer_name"`
	PricePaidInCents int        `json:"price_paid_in_cents"`
	RefundedAt       *time.Time `json:"refunded_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: tx}
}

// ListSales returns every purchase, newest first. Deleted customers show up with their
// redacted name.
func (r *purchaseRepository) ListSales() ([]Sale, error) {
	var purchases []models.Purchase
	err := r.db.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Order("created_at DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}

	sales := make([]Sale, 0, len(purchases))
	for _, p := range purchases {
		sales = append(sales, Sale{
			ID:               p.ID,
			ProductName:      p.ProductDetails.Data().Name,
			CustomerName:     p.User.Name,
			PricePaidInCents: p.PricePaidInCents,
			RefundedAt:       p.RefundedAt,
			CreatedAt:        p.CreatedAt,
		})
	}
	return sales, nil
}
