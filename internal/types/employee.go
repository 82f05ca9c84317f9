package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Employee is one roster record. Records are never deleted, only deactivated.
// Allocations is parallel to AllowedTokens: Allocations[i] is the percentage of
// the monthly salary paid in AllowedTokens[i].
type Employee struct {
	Address         common.Address   `json:"address"`
	Active          bool             `json:"active"`
	YearlySalaryUSD uint64           `json:"yearly_salary_usd"`
	AllowedTokens   []common.Address `json:"allowed_tokens"`
	Allocations     []uint64         `json:"allocations"`
	LastPayday      *time.Time       `json:"last_payday,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Clone returns a deep copy so staged changes never alias committed state.
func (e Employee) Clone() Employee {
	c := e
	c.AllowedTokens = append([]common.Address(nil), e.AllowedTokens...)
	c.Allocations = append([]uint64(nil), e.Allocations...)
	if e.LastPayday != nil {
		t := *e.LastPayday
		c.LastPayday = &t
	}
	return c
}

func (e Employee) TokenIndex(token common.Address) int {
	for i, t := range e.AllowedTokens {
		if t == token {
			return i
		}
	}
	return -1
}

type ExchangeRate struct {
	Token     common.Address `json:"token"`
	Rate      uint64         `json:"rate"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Roles struct {
	Owner  common.Address `json:"owner"`
	Oracle common.Address `json:"oracle"`
}

type ContractState struct {
	Roles
	Treasury     common.Address `json:"treasury"`
	USDToken     common.Address `json:"usd_token"`
	Terminated   bool           `json:"terminated"`
	TerminatedAt *time.Time     `json:"terminated_at,omitempty"`
}

// Snapshot is the full engine state, used for restore and audit exports.
type Snapshot struct {
	State     ContractState  `json:"state"`
	Employees []Employee     `json:"employees"`
	Rates     []ExchangeRate `json:"rates"`
	TakenAt   time.Time      `json:"taken_at"`
}

// ChangeSet is the staged result of one mutating call. The store applies it
// atomically before the engine swaps it into memory.
type ChangeSet struct {
	Employees []Employee
	Rates     []ExchangeRate
	State     *ContractState
	Payday    *PaydayRecord
}

func (c *ChangeSet) Empty() bool {
	return len(c.Employees) == 0 && len(c.Rates) == 0 && c.State == nil && c.Payday == nil
}
