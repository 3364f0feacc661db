package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProductStatusPublic  = "public"
	ProductStatusPrivate = "private"
)

type Product struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description      string    `gorm:"type:text;not null" json:"description" validate:"required"`
	ImageURL         string    `gorm:"type:varchar(512);not null" json:"image_url"`
	PriceInDollars   int       `gorm:"not null" json:"price_in_dollars" validate:"min=0"`
	Status           string    `gorm:"type:varchar(20);not null;default:'private'" json:"status" validate:"oneof=public private"`
	PaymentProductID string    `gorm:"type:varchar(191);not null;default:''" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Product) IsPublic() bool {
	return p.Status == ProductStatusPublic
}

// CourseProduct bundles a course into a product.
type CourseProduct struct {
	CourseID  string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"course_id"`
	ProductID string    `gorm:"type:char(36);primaryKey;autoIncrement:false" json:"product_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
