package payroll

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/vultisig/payroll-ledger/internal/types"
)

func TestRoleGuard(t *testing.T) {
	owner := common.HexToAddress("0x01")
	oracle := common.HexToAddress("0x02")
	emp := common.HexToAddress("0x03")
	roles := types.Roles{Owner: owner, Oracle: oracle}

	testCases := []struct {
		name       string
		caller     common.Address
		capability Capability
		subject    common.Address
		allowed    bool
	}{
		{name: "owner admin", caller: owner, capability: AdminOps, allowed: true},
		{name: "oracle admin", caller: oracle, capability: AdminOps},
		{name: "oracle rates", caller: oracle, capability: OracleOps, allowed: true},
		{name: "owner rates", caller: owner, capability: OracleOps},
		{name: "employee self", caller: emp, capability: SelfOps, subject: emp, allowed: true},
		{name: "owner on employee", caller: owner, capability: SelfOps, subject: emp},
		{name: "anonymous self", caller: common.Address{}, capability: SelfOps, subject: common.Address{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := RoleGuard{}.Authorize(roles, tc.caller, tc.capability, tc.subject)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, types.ErrUnauthorized)
		})
	}
}

func TestPercentOf(t *testing.T) {
	testCases := []struct {
		amount, pct, want uint64
	}{
		{amount: 1666666, pct: 25, want: 416666},
		{amount: 99, pct: 50, want: 49},
		{amount: 100, pct: 100, want: 100},
		{amount: 18446744073709551615, pct: 100, want: 18446744073709551615},
		{amount: 18446744073709551615, pct: 50, want: 9223372036854775807},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, percentOf(tc.amount, tc.pct))
	}
}
