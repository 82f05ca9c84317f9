package payroll

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/payroll-ledger/internal/types"
)

type Capability int

const (
	// AdminOps covers roster management, role changes and termination.
	AdminOps Capability = iota
	// OracleOps covers exchange-rate updates.
	OracleOps
	// SelfOps covers actions an employee takes on their own record.
	SelfOps
)

func (c Capability) String() string {
	switch c {
	case AdminOps:
		return "admin"
	case OracleOps:
		return "oracle"
	case SelfOps:
		return "self"
	}
	return "unknown"
}

// Guard decides whether caller may exercise capability. subject is the
// employee the call acts on and only matters for SelfOps.
type Guard interface {
	Authorize(roles types.Roles, caller common.Address, capability Capability, subject common.Address) error
}

// RoleGuard is the default Guard: Owner holds AdminOps, Oracle holds OracleOps
// and every identity holds SelfOps on itself.
type RoleGuard struct{}

var _ Guard = RoleGuard{}

func (RoleGuard) Authorize(roles types.Roles, caller common.Address, capability Capability, subject common.Address) error {
	if caller == (common.Address{}) {
		return types.NewPayrollError(types.ErrCodeUnauthorized, "anonymous caller")
	}
	switch capability {
	case AdminOps:
		if caller == roles.Owner {
			return nil
		}
	case OracleOps:
		if caller == roles.Oracle {
			return nil
		}
	case SelfOps:
		if caller == subject {
			return nil
		}
	}
	return types.NewPayrollError(types.ErrCodeUnauthorized, "%s is not allowed to perform %s operations", caller.Hex(), capability)
}
