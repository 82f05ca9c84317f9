package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/types"
)

func (s *Server) statsdMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Milliseconds()

		// Send metrics to statsd
		_ = s.sdClient.Incr("http.requests", []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Timing("http.response_time", time.Duration(duration)*time.Millisecond, []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Incr("http.status."+fmt.Sprint(c.Response().Status), []string{"path:" + c.Path(), "method:" + c.Request().Method}, 1)

		return err
	}
}

// AuthMiddleware resolves the caller from the bearer token and stores it in
// the request context.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "Missing Authorization header"})
		}
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "Authorization header must be a bearer token"})
		}

		claims, err := s.authService.ValidateToken(tokenStr)
		if err != nil {
			s.logger.Warnf("fail to validate token, err: %v", err)
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "Unauthorized"})
		}
		caller, err := claims.Caller()
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "Unauthorized"})
		}

		ctx := contexthelper.WithCaller(c.Request().Context(), caller)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func callerFrom(c echo.Context) (common.Address, error) {
	caller, ok := contexthelper.CallerFromContext(c.Request().Context())
	if !ok {
		return common.Address{}, types.NewPayrollError(types.ErrCodeUnauthorized, "no authenticated caller")
	}
	return caller, nil
}
