package models

import "time"

// Role is the platform-wide role of a user.
type Role string

const (
	RoleBuyer       Role = "buyer"
	RoleSellerAdmin Role = "seller_admin"
	RoleSellerStaff Role = "seller_staff"
	RoleOpsAdmin    Role = "ops_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSellerAdmin, RoleSellerStaff, RoleOpsAdmin:
		return true
	}
	return false
}

// User represents an account holder. Phone is the login key.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName     string    `json:"full_name" gorm:"type:varchar(100);not null"`
	Phone        string    `json:"phone" gorm:"uniqueIndex;type:varchar(20);not null"`
	Email        *string   `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:buyer"`
	KYCStatus    string    `json:"kyc_status" gorm:"type:varchar(20);not null;default:pending"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
