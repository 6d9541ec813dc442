package policy

import (
	"testing"

	"jengamart/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationRole(t *testing.T) {
	tests := []struct {
		requested string
		expected  models.Role
	}{
		{"", models.RoleBuyer},
		{"buyer", models.RoleBuyer},
		{"seller", models.RoleSellerAdmin},
		{"seller_admin", models.RoleSellerAdmin},
		{"seller_staff", models.RoleBuyer},
		{"ops_admin", models.RoleBuyer},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			assert.Equal(t, tt.expected, RegistrationRole(tt.requested))
		})
	}
}

func TestMembershipCapabilities(t *testing.T) {
	admin := &models.Membership{Role: models.MemberRoleAdmin}
	staff := &models.Membership{Role: models.MemberRoleStaff}

	assert.True(t, CanInvite(admin))
	assert.False(t, CanInvite(staff))
	assert.False(t, CanInvite(nil))

	assert.True(t, CanManageSeller(models.RoleSellerAdmin, admin))
	assert.False(t, CanManageSeller(models.RoleSellerStaff, staff))
	assert.True(t, CanManageSeller(models.RoleOpsAdmin, nil))

	assert.True(t, CanFulfilOrders(models.RoleSellerStaff, staff))
	assert.False(t, CanFulfilOrders(models.RoleBuyer, nil))
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, CanManageCatalog(models.RoleSellerStaff))
	assert.False(t, CanManageCatalog(models.RoleBuyer))
	assert.True(t, CanPlaceOrder(models.RoleBuyer))
	assert.False(t, CanPlaceOrder(models.RoleSellerAdmin))
	assert.True(t, CanSeeAllSellers(models.RoleOpsAdmin))
	assert.False(t, CanSeeAllSellers(models.RoleSellerAdmin))
}
