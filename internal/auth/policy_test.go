package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

func TestOracle_DefaultPolicy(t *testing.T) {
	o := NewOracle(nil)

	assert.True(t, o.Allow(models.RolePlatform, OpIssueReceipt))
	assert.True(t, o.Allow(models.RoleGovernment, OpResolveDispute))
	assert.False(t, o.Allow(models.RoleOwner, OpResolveDispute))
	assert.False(t, o.Allow(models.RoleBuyer, OpIssueReceipt))
	assert.True(t, o.Allow(models.RoleBuyer, OpFileDispute))
	assert.False(t, o.Allow(models.RolePlatform, Operation("unknown")))
}

func TestOracle_Scoped(t *testing.T) {
	o := NewOracle(nil)
	owner := models.Actor{Username: "awa", Role: models.RoleOwner, EntityID: "E-WG-001"}
	custodian := models.Actor{Username: "mcc", Role: models.RoleCustodian, EntityID: "C-MCC-001"}
	platform := models.Actor{Username: "admin", Role: models.RolePlatform, EntityID: "E-PLAT-001"}

	assert.NoError(t, o.AuthorizeOwner(owner, OpIssueAdvance, "E-WG-001"))
	assert.ErrorIs(t, o.AuthorizeOwner(owner, OpIssueAdvance, "E-COOP-001"), models.ErrForbidden)
	assert.NoError(t, o.AuthorizeOwner(platform, OpIssueAdvance, "E-COOP-001"))

	assert.NoError(t, o.AuthorizeCustodian(custodian, OpConfirmRelease, "C-MCC-001"))
	assert.ErrorIs(t, o.AuthorizeCustodian(custodian, OpConfirmRelease, "C-PROC-001"), models.ErrForbidden)
	assert.ErrorIs(t, o.AuthorizeCustodian(owner, OpConfirmRelease, "C-MCC-001"), models.ErrForbidden)
}
