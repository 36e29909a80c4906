// Package roles gates privileged ledger operations behind the three property
// roles and manages their reassignment.
package roles

import (
	"fmt"

	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/enums"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// HolderOf returns the address currently assigned to the role.
func HolderOf(property *models.Property, role enums.Role) types.Address {
	switch role {
	case enums.RoleOwner:
		return property.OwnerAddress
	case enums.RoleTreasury:
		return property.TreasuryAddress
	case enums.RoleOperator:
		return property.OperatorAddress
	default:
		return types.ZeroAddress
	}
}

// Authorize checks that caller holds at least one of the given roles on the
// property. A zero or malformed caller address never authorizes.
func Authorize(property *models.Property, caller types.Address, allowed ...enums.Role) error {
	if property == nil {
		return pkgerrors.NewReason(pkgerrors.CodeNotFound, pkgerrors.ReasonPropertyNotFound, "property not found")
	}
	if !caller.IsValid() {
		return pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			fmt.Sprintf("invalid caller address %q", caller))
	}
	for _, role := range allowed {
		if HolderOf(property, role) == caller {
			return nil
		}
	}
	return pkgerrors.NewReason(pkgerrors.CodeForbidden, pkgerrors.ReasonUnauthorizedRole,
		fmt.Sprintf("caller does not hold any of the required roles %v", allowed))
}
