package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductSnapshot is the immutable copy of a product taken at purchase time.
type ProductSnapshot struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"imageUrl"`
	PriceInDollars int    `json:"priceInDollars"`
}

// Purchase is one successful payment. PaymentSessionID is the provider payment id
// and is unique, which is what makes replayed webhooks safe.
type Purchase struct {
	ID               string                              `gorm:"type:char(36);primaryKey" json:"id"`
	PricePaidInCents int                                 `gorm:"not null" json:"price_paid_in_cents"`
	ProductDetails   datatypes.JSONType[ProductSnapshot] `gorm:"not null" json:"product_details"`
	UserID           string                              `gorm:"type:char(36);not null;index" json:"user_id"`
	User             User                                `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	ProductID        string                              `gorm:"type:char(36);not null;index" json:"product_id"`
	Product          Product                             `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	PaymentSessionID string                              `gorm:"type:varchar(191);not null;uniqueIndex" json:"payment_session_id"`
	RefundedAt       *time.Time                          `gorm:"default:null" json:"refunded_at,omitempty"`
	CreatedAt        time.Time                           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Purchase) IsRefunded() bool {
	return p.RefundedAt != nil
}

func SnapshotOf(p *Product) ProductSnapshot {
	return ProductSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		ImageURL:       p.ImageURL,
		PriceInDollars: p.PriceInDollars,
	}
}
