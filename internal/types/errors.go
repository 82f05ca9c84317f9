package types

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrCodeNotActive          ErrorCode = "NOT_ACTIVE"
	ErrCodeInvalidPercentage  ErrorCode = "INVALID_PERCENTAGE"
	ErrCodeLengthMismatch     ErrorCode = "LENGTH_MISMATCH"
	ErrCodeTokenNotAllowed    ErrorCode = "TOKEN_NOT_ALLOWED"
	ErrCodeDuplicateToken     ErrorCode = "DUPLICATE_TOKEN"
	ErrCodeIndexOutOfRange    ErrorCode = "INDEX_OUT_OF_RANGE"
	ErrCodeInvalidRate        ErrorCode = "INVALID_RATE"
	ErrCodeRateNotSet         ErrorCode = "RATE_NOT_SET"
	ErrCodeTransferFailed     ErrorCode = "TRANSFER_FAILED"
	ErrCodeDivisionByZero     ErrorCode = "DIVISION_BY_ZERO"
	ErrCodeOverflow           ErrorCode = "OVERFLOW"
	ErrCodeContractTerminated ErrorCode = "CONTRACT_TERMINATED"
	ErrCodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	ErrCodeStorageFailure     ErrorCode = "STORAGE_FAILURE"
)

// PayrollError is returned by every engine operation that rejects a call.
// Two PayrollErrors match under errors.Is when their codes are equal.
type PayrollError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *PayrollError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PayrollError) Unwrap() error {
	return e.Err
}

func (e *PayrollError) Is(target error) bool {
	var t *PayrollError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func NewPayrollError(code ErrorCode, format string, args ...interface{}) *PayrollError {
	return &PayrollError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WrapPayrollError(code ErrorCode, err error, format string, args ...interface{}) *PayrollError {
	return &PayrollError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorCodeOf returns the code of the first PayrollError in err's chain.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var pe *PayrollError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// sentinels for errors.Is
var (
	ErrUnauthorized       = &PayrollError{Code: ErrCodeUnauthorized, Message: "caller lacks the required role"}
	ErrNotFound           = &PayrollError{Code: ErrCodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &PayrollError{Code: ErrCodeAlreadyExists, Message: "already exists"}
	ErrNotActive          = &PayrollError{Code: ErrCodeNotActive, Message: "employee is not active"}
	ErrInvalidPercentage  = &PayrollError{Code: ErrCodeInvalidPercentage, Message: "invalid percentage"}
	ErrLengthMismatch     = &PayrollError{Code: ErrCodeLengthMismatch, Message: "length mismatch"}
	ErrTokenNotAllowed    = &PayrollError{Code: ErrCodeTokenNotAllowed, Message: "token not allowed"}
	ErrDuplicateToken     = &PayrollError{Code: ErrCodeDuplicateToken, Message: "duplicate token"}
	ErrIndexOutOfRange    = &PayrollError{Code: ErrCodeIndexOutOfRange, Message: "index out of range"}
	ErrInvalidRate        = &PayrollError{Code: ErrCodeInvalidRate, Message: "invalid rate"}
	ErrRateNotSet         = &PayrollError{Code: ErrCodeRateNotSet, Message: "exchange rate not set"}
	ErrTransferFailed     = &PayrollError{Code: ErrCodeTransferFailed, Message: "transfer failed"}
	ErrDivisionByZero     = &PayrollError{Code: ErrCodeDivisionByZero, Message: "division by zero"}
	ErrOverflow           = &PayrollError{Code: ErrCodeOverflow, Message: "result does not fit in 64 bits"}
	ErrContractTerminated = &PayrollError{Code: ErrCodeContractTerminated, Message: "contract terminated"}
	ErrInvalidArgument    = &PayrollError{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrStorageFailure     = &PayrollError{Code: ErrCodeStorageFailure, Message: "storage failure"}
)

// TransactionError describes a failed on-chain token transfer.
type TransactionError struct {
	Code    string
	Message string
	Err     error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

const (
	// balance related
	ErrInsufficientFunds = "INSUFFICIENT_FUNDS"

	// network/RPC related
	ErrRPCConnectionFailed = "RPC_CONNECTION_FAILED"

	// transaction state
	ErrTxDropped = "TX_DROPPED"
	ErrTxTimeout = "TX_TIMEOUT"

	// retriable errors (nonce, gas price, gas limit)
	ErrRetriable = "RETRIABLE_ERROR"

	// reverted and not worth retrying
	ErrPermanentFailure = "PERMANENT_FAILURE"
)
