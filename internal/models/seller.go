package models

import "time"

// MemberRole is the role a user holds on a single seller.
type MemberRole string

const (
	MemberRoleAdmin MemberRole = "admin"
	MemberRoleStaff MemberRole = "staff"
)

// Valid reports whether r is a known membership role.
func (r MemberRole) Valid() bool {
	return r == MemberRoleAdmin || r == MemberRoleStaff
}

// GeoPoint is a pickup coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Seller is a storefront. UserID is the creating owner; staff are attached through Membership.
type Seller struct {
	ID             string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string       `json:"user" gorm:"type:varchar(36);index;not null"`
	BusinessName   string       `json:"business_name" gorm:"type:varchar(150);not null"`
	TIN            *string      `json:"tin" gorm:"type:varchar(30)"`
	Phone          string       `json:"phone" gorm:"type:varchar(20);not null"`
	Email          *string      `json:"email" gorm:"type:varchar(255)"`
	Verified       bool         `json:"verified" gorm:"not null;default:false"`
	PickupLocation *GeoPoint    `json:"pickup_location" gorm:"serializer:json"`
	Address        *string      `json:"address" gorm:"type:text"`
	Members        []Membership `json:"members" gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Membership links a user to a seller. A (seller, user) pair is unique.
type Membership struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID    string     `json:"seller" gorm:"type:varchar(36);not null;uniqueIndex:idx_membership_seller_user"`
	UserID      string     `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_membership_seller_user;index"`
	User        *User      `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role        MemberRole `json:"role" gorm:"type:varchar(10);not null;default:staff"`
	InvitedByID *string    `json:"invited_by" gorm:"type:varchar(36)"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName keeps the historical table name for the seller/user join.
func (Membership) TableName() string {
	return "seller_users"
}
