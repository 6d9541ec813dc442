package models

import "time"

// InvitationStatus is the state of a seller invitation.
// pending is the only non-terminal state.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation offers a seat on a seller's staff to an email/phone pair.
type Invitation struct {
	ID          string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID    string           `json:"seller" gorm:"type:varchar(36);not null;index:idx_invitation_pending_email,unique,where:status = 'pending';index:idx_invitation_pending_phone,unique,where:status = 'pending'"`
	Seller      *Seller          `json:"-" gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	Email       string           `json:"email" gorm:"type:varchar(255);not null;index:idx_invitation_pending_email,unique,where:status = 'pending'"`
	Phone       string           `json:"phone" gorm:"type:varchar(30);not null;index:idx_invitation_pending_phone,unique,where:status = 'pending'"`
	Token       string           `json:"token" gorm:"type:varchar(36);uniqueIndex;not null"`
	Role        MemberRole       `json:"role" gorm:"type:varchar(10);not null;default:staff"`
	Status      InvitationStatus `json:"status" gorm:"type:varchar(12);not null;default:pending"`
	InvitedByID string           `json:"invited_by" gorm:"type:varchar(36);not null"`
	CreatedAt   time.Time        `json:"created_at"`
	AcceptedAt  *time.Time       `json:"accepted_at"`
}

// SellerName is exposed alongside the invitation when the seller is loaded.
func (i Invitation) SellerName() string {
	if i.Seller == nil {
		return ""
	}
	return i.Seller.BusinessName
}
