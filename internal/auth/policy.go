// Package auth holds the authorization oracle: which role may invoke which
// engine operation. Authentication is handled outside the engine.
package auth

import (
	"fmt"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// Operation names a guarded engine operation.
type Operation string

const (
	OpRecordIntake       Operation = "record_intake"
	OpUpdateLot          Operation = "update_lot"
	OpIssueReceipt       Operation = "issue_receipt"
	OpTransitionReceipt  Operation = "transition_receipt"
	OpIssueAdvance       Operation = "issue_advance"
	OpRepayAdvance       Operation = "repay_advance"
	OpCreateContract     Operation = "create_contract"
	OpConfirmPayment     Operation = "confirm_payment"
	OpFileDispute        Operation = "file_dispute"
	OpResolveDispute     Operation = "resolve_dispute"
	OpCreateReleaseOrder Operation = "create_release_order"
	OpConfirmRelease     Operation = "confirm_release"
	OpComputeSLA         Operation = "compute_sla"
)

var allRoles = []models.Role{
	models.RolePlatform, models.RoleGovernment, models.RoleOwner, models.RoleCustodian, models.RoleBuyer,
}

// DefaultPolicy mirrors the role gates of the pilot.
var DefaultPolicy = map[Operation][]models.Role{
	OpRecordIntake:       {models.RoleCustodian, models.RolePlatform},
	OpUpdateLot:          {models.RoleCustodian, models.RolePlatform},
	OpIssueReceipt:       {models.RolePlatform, models.RoleGovernment},
	OpTransitionReceipt:  {models.RolePlatform, models.RoleGovernment},
	OpIssueAdvance:       {models.RolePlatform, models.RoleOwner},
	OpRepayAdvance:       {models.RolePlatform, models.RoleOwner},
	OpCreateContract:     {models.RolePlatform, models.RoleOwner},
	OpConfirmPayment:     {models.RolePlatform},
	OpFileDispute:        allRoles,
	OpResolveDispute:     {models.RolePlatform, models.RoleGovernment},
	OpCreateReleaseOrder: allRoles,
	OpConfirmRelease:     {models.RoleCustodian, models.RolePlatform},
	OpComputeSLA:         {models.RolePlatform, models.RoleGovernment},
}

// Oracle answers allow/deny for a role and operation.
type Oracle struct {
	policy map[Operation][]models.Role
}

// NewOracle builds an Oracle; a nil policy means DefaultPolicy.
func NewOracle(policy map[Operation][]models.Role) *Oracle {
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Oracle{policy: policy}
}

// Allow reports whether role may invoke op. Unknown operations are denied.
func (o *Oracle) Allow(role models.Role, op Operation) bool {
	for _, r := range o.policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden when the actor's role may not invoke op.
func (o *Oracle) Authorize(actor models.Actor, op Operation) error {
	if !o.Allow(actor.Role, op) {
		return fmt.Errorf("%s may not %s: %w", actor.Role, op, models.ErrForbidden)
	}
	return nil
}

// AuthorizeOwner additionally requires owner actors to act on their own entity.
func (o *Oracle) AuthorizeOwner(actor models.Actor, op Operation, ownerEntityID string) error {
	if err := o.Authorize(actor, op); err != nil {
		return err
	}
	if actor.Role == models.RoleOwner && actor.EntityID != ownerEntityID {
		return fmt.Errorf("owner %s does not hold %s: %w", actor.EntityID, ownerEntityID, models.ErrForbidden)
	}
	return nil
}

// AuthorizeCustodian additionally requires custodian actors to act on their own site.
func (o *Oracle) AuthorizeCustodian(actor models.Actor, op Operation, custodianID string) error {
	if err := o.Authorize(actor, op); err != nil {
		return err
	}
	if actor.Role == models.RoleCustodian && actor.EntityID != custodianID {
		return fmt.Errorf("custodian %s is not %s: %w", actor.EntityID, custodianID, models.ErrForbidden)
	}
	return nil
}
