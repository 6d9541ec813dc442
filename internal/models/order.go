package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderDispatched OrderStatus = "dispatched"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderDispatched, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// DeliveryAddress is stored as a JSON document on the order.
type DeliveryAddress struct {
	Line1      string    `json:"line1,omitempty"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Landmark   string    `json:"landmark,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Coordinate *GeoPoint `json:"coordinate,omitempty"`
}

// Order is a buyer's purchase from one seller. Totals stay null until the first item is added.
type Order struct {
	ID              string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BuyerID         string              `json:"buyer" gorm:"type:varchar(36);not null;index"`
	Buyer           *User               `json:"-" gorm:"foreignKey:BuyerID;constraint:OnDelete:CASCADE"`
	SellerID        string              `json:"seller" gorm:"type:varchar(36);not null;index"`
	Seller          *Seller             `json:"-" gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	Status          OrderStatus         `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	Subtotal        decimal.NullDecimal `json:"subtotal" gorm:"type:numeric(12,2)"`
	Tax             decimal.NullDecimal `json:"tax" gorm:"type:numeric(12,2)"`
	ShippingFee     decimal.NullDecimal `json:"shipping_fee" gorm:"type:numeric(12,2)"`
	Total           decimal.NullDecimal `json:"total" gorm:"type:numeric(12,2)"`
	DeliveryMethod  string              `json:"delivery_method" gorm:"type:varchar(30);not null;default:pickup"`
	DeliveryAddress DeliveryAddress     `json:"delivery_address" gorm:"serializer:json"`
	Items           []OrderItem         `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderItem is a line on an order. UnitPrice and LineTotal are snapshots taken when the
// item was added and never change afterwards.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order" gorm:"type:varchar(36);not null;index"`
	ProductID *string         `json:"product" gorm:"type:varchar(36);index"`
	Product   *Product        `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at"`
}
