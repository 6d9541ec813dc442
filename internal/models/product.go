package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item owned by exactly one seller.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID    string          `json:"seller" gorm:"type:varchar(36);not null;index"`
	Seller      *Seller         `json:"-" gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	Category    string          `json:"category" gorm:"type:varchar(100);not null;index"`
	Name        string          `json:"name" gorm:"type:varchar(150);not null"`
	Brand       *string         `json:"brand" gorm:"type:varchar(100)"`
	Description *string         `json:"description" gorm:"type:text"`
	Unit        string          `json:"unit" gorm:"type:varchar(30);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Images      []string        `json:"images" gorm:"serializer:json"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
