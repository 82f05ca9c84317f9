package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vultisig/payroll-ledger/internal/types"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(code types.ErrorCode) int {
	switch code {
	case types.ErrCodeUnauthorized:
		return http.StatusForbidden
	case types.ErrCodeNotFound, types.ErrCodeRateNotSet:
		return http.StatusNotFound
	case types.ErrCodeAlreadyExists:
		return http.StatusConflict
	case types.ErrCodeContractTerminated:
		return http.StatusGone
	case types.ErrCodeTransferFailed:
		return http.StatusPaymentRequired
	case types.ErrCodeDivisionByZero, types.ErrCodeOverflow:
		return http.StatusUnprocessableEntity
	case types.ErrCodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var pe *types.PayrollError
	var he *echo.HTTPError
	var status int
	var body errorResponse
	switch {
	case errors.As(err, &pe):
		status = statusFor(pe.Code)
		body = errorResponse{Code: string(pe.Code), Message: pe.Error()}
	case errors.As(err, &he):
		status = he.Code
		body = errorResponse{Code: http.StatusText(he.Code), Message: http.StatusText(he.Code)}
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		}
	default:
		s.logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		status = http.StatusInternalServerError
		body = errorResponse{Code: "INTERNAL", Message: "internal server error"}
	}

	if err := c.JSON(status, body); err != nil {
		s.logger.WithError(err).Error("fail to write error response")
	}
}

func invalidArgument(format string, args ...interface{}) error {
	return types.NewPayrollError(types.ErrCodeInvalidArgument, format, args...)
}
