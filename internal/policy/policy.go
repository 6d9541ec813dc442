// Package policy holds one capability check per protected operation. Handlers and services ask
// these functions instead of comparing role strings at call sites.
package policy

import "jengamart/internal/models"

// IsSellerRole reports whether the role belongs to seller staff of any level.
func IsSellerRole(r models.Role) bool {
	return r == models.RoleSellerAdmin || r == models.RoleSellerStaff
}

// CanSeeAllSellers is true for operations staff.
func CanSeeAllSellers(r models.Role) bool {
	return r == models.RoleOpsAdmin
}

// CanManageCatalog gates product writes.
func CanManageCatalog(r models.Role) bool {
	return IsSellerRole(r) || r == models.RoleOpsAdmin
}

// CanPlaceOrder gates order creation and checkout.
func CanPlaceOrder(r models.Role) bool {
	return r == models.RoleBuyer || r == models.RoleOpsAdmin
}

// CanManageSeller reports whether a caller may edit or delete a seller. membership is the
// caller's membership on that seller, nil if none.
func CanManageSeller(r models.Role, membership *models.Membership) bool {
	if r == models.RoleOpsAdmin {
		return true
	}
	return membership != nil && membership.Role == models.MemberRoleAdmin
}

// CanInvite reports whether a caller may invite staff to a seller.
func CanInvite(membership *models.Membership) bool {
	return membership != nil && membership.Role == models.MemberRoleAdmin
}

// CanFulfilOrders reports whether a caller may move an order of a seller through fulfilment.
func CanFulfilOrders(r models.Role, membership *models.Membership) bool {
	return r == models.RoleOpsAdmin || membership != nil
}

// RegistrationRole maps a self-service registration request onto an allowed role.
// "seller" is an alias for seller_admin; anything else falls back to buyer.
func RegistrationRole(requested string) models.Role {
	switch requested {
	case "seller", string(models.RoleSellerAdmin):
		return models.RoleSellerAdmin
	default:
		return models.RoleBuyer
	}
}
