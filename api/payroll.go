package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/tasks"
	"github.com/vultisig/payroll-ledger/internal/types"
	"github.com/vultisig/payroll-ledger/storage"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	paydayKeyTTL         = 30 * 24 * time.Hour
	defaultHistoryTake   = 20
	maxHistoryTake       = 100
)

func addressParam(c echo.Context, name string) (common.Address, error) {
	raw := c.Param(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, invalidArgument("%s %q is not an address", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAddresses(raw []string) []common.Address {
	out := make([]common.Address, len(raw))
	for i, s := range raw {
		out[i] = common.HexToAddress(s)
	}
	return out
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidArgument("fail to parse request: %v", err)
	}
	if err := c.Validate(req); err != nil {
		return invalidArgument("invalid request: %v", err)
	}
	return nil
}

func (s *Server) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.State())
}

func (s *Server) GetTreasuryBalance(c echo.Context) error {
	balance, err := s.engine.TreasuryBalance(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"usd_balance": balance.String()})
}

func (s *Server) GetBurnRate(c echo.Context) error {
	burn, err := s.engine.BurnRate()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"burn_rate": burn})
}

func (s *Server) GetRunway(c echo.Context) error {
	days, err := s.engine.Runway(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"runway_days": days})
}

func (s *Server) GetRates(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Rates())
}

func (s *Server) GetRate(c echo.Context) error {
	token, err := addressParam(c, "token")
	if err != nil {
		return err
	}
	rate, err := s.engine.GetRate(token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.ExchangeRate{Token: token, Rate: rate})
}

func (s *Server) GetRoster(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Roster())
}

func (s *Server) GetEmployeeCount(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"count": s.engine.Count()})
}

func (s *Server) GetEmployee(c echo.Context) error {
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	active, salary, err := s.engine.Get(identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.EmployeeResponse{Active: active, YearlySalaryUSD: salary})
}

func (s *Server) GetTokenCount(c echo.Context) error {
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	n, err := s.engine.TokenCount(identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (s *Server) GetTokenAt(c echo.Context) error {
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return invalidArgument("index %q is not a number", c.Param("index"))
	}
	token, pct, err := s.engine.TokenAt(identity, index)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types.TokenAtResponse{Token: token.Hex(), Percentage: pct})
}

func (s *Server) IsValidEmployeeToken(c echo.Context) error {
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	token, err := addressParam(c, "token")
	if err != nil {
		return err
	}
	valid, err := s.engine.IsValidEmployeeToken(identity, token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": valid})
}

func (s *Server) GetPaydayHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payday history is not available")
	}
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	take, skip := defaultHistoryTake, 0
	if v := c.QueryParam("take"); v != "" {
		if take, err = strconv.Atoi(v); err != nil || take <= 0 || take > maxHistoryTake {
			return invalidArgument("take must be between 1 and %d", maxHistoryTake)
		}
	}
	if v := c.QueryParam("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			return invalidArgument("skip must be a non-negative number")
		}
	}
	records, err := s.history.GetPaydayHistory(c.Request().Context(), identity, take, skip)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) GetPayday(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payday history is not available")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return invalidArgument("id %q is not a uuid", c.Param("id"))
	}
	record, err := s.history.GetPayday(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) Hire(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req types.HireRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	identity := common.HexToAddress(req.Address)
	if err := s.engine.Hire(c.Request().Context(), caller, identity, parseAddresses(req.AllowedTokens), req.YearlySalaryUSD); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) SetSalary(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	var req types.SalaryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.SetSalary(c.Request().Context(), caller, identity, req.YearlySalaryUSD); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) Remove(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	if err := s.engine.Remove(c.Request().Context(), caller, identity); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) Reactivate(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	identity, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	var req types.SalaryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.Reactivate(c.Request().Context(), caller, identity, req.YearlySalaryUSD); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) SetAllocation(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req types.AllocationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.SetAllocation(c.Request().Context(), caller, caller, parseAddresses(req.Tokens), req.Percentages); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) SetRate(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req types.RateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.SetRate(c.Request().Context(), caller, common.HexToAddress(req.Token), req.Rate); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// Payday pays the caller. With an Idempotency-Key header a repeated request
// returns the first receipt instead of paying again.
func (s *Server) Payday(c echo.Context) error {
	ctx := c.Request().Context()
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	key := c.Request().Header.Get(IdempotencyKeyHeader)
	if key != "" && s.redis == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "idempotency keys are not available")
	}

	if key != "" {
		receipt, err := s.redis.GetPaydayReceipt(ctx, caller, key)
		if err != nil {
			if errors.Is(err, storage.ErrPaydayInFlight) {
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			}
			return err
		}
		if receipt != nil {
			return c.JSON(http.StatusOK, receipt)
		}
		reserved, err := s.redis.ReservePayday(ctx, caller, key, paydayKeyTTL)
		if err != nil {
			return err
		}
		if !reserved {
			return echo.NewHTTPError(http.StatusConflict, storage.ErrPaydayInFlight.Error())
		}
	}

	receipt, err := s.engine.Payday(ctx, caller)
	if receipt == nil {
		if key != "" {
			if rErr := s.redis.ReleasePayday(ctx, caller, key); rErr != nil {
				s.logger.WithError(rErr).Error("fail to release payday key")
			}
		}
		return err
	}
	if key != "" {
		if sErr := s.redis.SavePaydayReceipt(ctx, key, receipt, paydayKeyTTL); sErr != nil {
			s.logger.WithError(sErr).WithField("payday_id", receipt.ID.String()).Error("fail to cache payday receipt")
		}
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, receipt)
}

func (s *Server) PaydayAsync(c echo.Context) error {
	if s.client == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "task queue is not available")
	}
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	task, err := tasks.NewPayday(caller)
	if err != nil {
		return err
	}
	ti, err := s.client.Enqueue(task,
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Queue(tasks.QUEUE_NAME))
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"employee": caller.Hex(),
		"task_id":  ti.ID,
	}).Info("payday task enqueued")
	return c.JSON(http.StatusAccepted, types.TaskResponse{TaskID: ti.ID})
}

func (s *Server) GetPaydayResult(c echo.Context) error {
	if s.inspector == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "task queue is not available")
	}
	taskID := c.Param("taskId")
	if taskID == "" {
		return invalidArgument("task id is required")
	}
	result, err := tasks.GetTaskResult(s.inspector, taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskInProgress) {
			return c.JSON(http.StatusAccepted, echo.Map{"status": "Task is still in progress"})
		}
		return err
	}
	return c.JSONBlob(http.StatusOK, result)
}

func (s *Server) TransferOwnership(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req types.AddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.TransferOwnership(c.Request().Context(), caller, common.HexToAddress(req.Address)); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) SetOracle(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req types.AddressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.engine.SetOracle(c.Request().Context(), caller, common.HexToAddress(req.Address)); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) Terminate(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	if err := s.engine.Terminate(c.Request().Context(), caller); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.engine.State())
}
