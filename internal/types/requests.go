package types

type HireRequest struct {
	Address         string   `json:"address" validate:"required,eth_address"`
	AllowedTokens   []string `json:"allowed_tokens" validate:"dive,eth_address"`
	YearlySalaryUSD uint64   `json:"yearly_salary_usd"`
}

type SalaryRequest struct {
	YearlySalaryUSD uint64 `json:"yearly_salary_usd"`
}

type AllocationRequest struct {
	Tokens      []string `json:"tokens" validate:"dive,eth_address"`
	Percentages []int64  `json:"percentages"`
}

type RateRequest struct {
	Token string `json:"token" validate:"required,eth_address"`
	Rate  int64  `json:"rate"`
}

type AddressRequest struct {
	Address string `json:"address" validate:"required,eth_address"`
}

type EmployeeResponse struct {
	Active          bool   `json:"active"`
	YearlySalaryUSD uint64 `json:"yearly_salary_usd"`
}

type TokenAtResponse struct {
	Token      string `json:"token"`
	Percentage uint64 `json:"percentage"`
}

type TaskResponse struct {
	TaskID string `json:"task_id"`
}
