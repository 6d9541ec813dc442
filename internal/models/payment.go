package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a payment. success and failed are terminal.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Payment is one attempt to collect money for an order. TxRef correlates the row with the
// provider's callback.
type Payment struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order" gorm:"type:varchar(36);not null;index"`
	Order     *Order          `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Method    string          `json:"method" gorm:"type:varchar(20);not null;default:mobile_money"`
	Provider  string          `json:"provider" gorm:"type:varchar(30)"`
	TxRef     *string         `json:"tx_ref" gorm:"type:varchar(100);uniqueIndex"`
	Phone     string          `json:"phone" gorm:"type:varchar(20)"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status    PaymentStatus   `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	Payload   RawJSON         `json:"payload" gorm:"type:text"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RawJSON keeps a provider document byte for byte, in the database and on the wire.
type RawJSON []byte

// Value implements driver.Valuer.
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case string:
		*r = append((*r)[:0], v...)
	case []byte:
		*r = append((*r)[:0], v...)
	default:
		return fmt.Errorf("unsupported payload type %T", src)
	}
	return nil
}

// MarshalJSON emits the stored document unchanged.
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("{}"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of the incoming document.
func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
