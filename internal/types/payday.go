package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Transfer is one instruction issued to a token ledger during a payday.
type Transfer struct {
	Token      common.Address `json:"token"`
	To         common.Address `json:"to"`
	Amount     uint64         `json:"amount"`
	PortionUSD uint64         `json:"portion_usd"`
	Percentage uint64         `json:"percentage"`
	Rate       uint64         `json:"rate,omitempty"`
}

// PaydayRecord is the audit entry of one committed disbursement; it doubles as
// the receipt returned to the employee.
type PaydayRecord struct {
	ID               uuid.UUID      `json:"id"`
	Employee         common.Address `json:"employee"`
	MonthlySalaryUSD uint64         `json:"monthly_salary_usd"`
	Transfers        []Transfer     `json:"transfers"`
	// Partial marks a payday whose ledger rejected a transfer after earlier
	// ones had gone out. Transfers then lists only the executed ones.
	Partial   bool      `json:"partial,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PaydayReceipt = PaydayRecord

// Totals sums the planned amounts per token.
func (r *PaydayRecord) Totals() map[common.Address]uint64 {
	totals := make(map[common.Address]uint64, len(r.Transfers))
	for _, t := range r.Transfers {
		totals[t.Token] += t.Amount
	}
	return totals
}
