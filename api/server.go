package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/payroll"
	"github.com/vultisig/payroll-ledger/internal/tasks"
	"github.com/vultisig/payroll-ledger/internal/types"
	"github.com/vultisig/payroll-ledger/internal/validation"
	"github.com/vultisig/payroll-ledger/service"
)

// IdempotencyStore deduplicates paydays by client supplied key.
type IdempotencyStore interface {
	ReservePayday(ctx context.Context, employee common.Address, idempotencyKey string, ttl time.Duration) (bool, error)
	SavePaydayReceipt(ctx context.Context, idempotencyKey string, receipt *types.PaydayReceipt, ttl time.Duration) error
	GetPaydayReceipt(ctx context.Context, employee common.Address, idempotencyKey string) (*types.PaydayReceipt, error)
	ReleasePayday(ctx context.Context, employee common.Address, idempotencyKey string) error
}

type PaydayHistory interface {
	GetPayday(ctx context.Context, id uuid.UUID) (*types.PaydayRecord, error)
	GetPaydayHistory(ctx context.Context, employee common.Address, take int, skip int) ([]types.PaydayRecord, error)
}

type TaskQueue interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	port        int64
	engine      *payroll.Engine
	authService *service.AuthService
	redis       IdempotencyStore
	history     PaydayHistory
	client      TaskQueue
	inspector   tasks.TaskInspector
	sdClient    statsd.ClientInterface
	logger      *logrus.Logger
}

// NewServer returns a new server. redis, history, client and inspector are
// optional; the routes that need them answer 503 without them.
func NewServer(port int64,
	engine *payroll.Engine,
	authService *service.AuthService,
	redis IdempotencyStore,
	history PaydayHistory,
	client TaskQueue,
	inspector tasks.TaskInspector,
	sdClient statsd.ClientInterface) *Server {
	logger := logrus.WithField("service", "api").Logger
	if sdClient == nil {
		sdClient = &statsd.NoOpClient{}
	}
	return &Server{
		port:        port,
		engine:      engine,
		authService: authService,
		redis:       redis,
		history:     history,
		client:      client,
		inspector:   inspector,
		sdClient:    sdClient,
		logger:      logger,
	}
}

func (s *Server) StartServer() error {
	e := s.newEcho()
	return e.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.DEBUG)
	e.Validator = validation.NewEchoValidator()
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M")) // set maximum allowed size for a request body to 2M
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	e.GET("/ping", s.Ping)

	grp := e.Group("/payroll")
	grp.GET("/state", s.GetState)
	grp.GET("/treasury", s.GetTreasuryBalance)
	grp.GET("/burnrate", s.GetBurnRate)
	grp.GET("/runway", s.GetRunway)
	grp.GET("/rates", s.GetRates)
	grp.GET("/rates/:token", s.GetRate)
	grp.GET("/employees", s.GetRoster)
	grp.GET("/employees/count", s.GetEmployeeCount)
	grp.GET("/employees/:address", s.GetEmployee)
	grp.GET("/employees/:address/tokens", s.GetTokenCount)
	grp.GET("/employees/:address/tokens/:index", s.GetTokenAt)
	grp.GET("/employees/:address/tokens/valid/:token", s.IsValidEmployeeToken)
	grp.GET("/employees/:address/paydays", s.GetPaydayHistory)
	grp.GET("/paydays/:id", s.GetPayday)

	authed := grp.Group("", s.AuthMiddleware)
	authed.POST("/auth/refresh", s.RefreshToken)
	authed.POST("/employees", s.Hire)
	authed.PUT("/employees/:address/salary", s.SetSalary)
	authed.DELETE("/employees/:address", s.Remove)
	authed.POST("/employees/:address/reactivate", s.Reactivate)
	authed.PUT("/allocation", s.SetAllocation)
	authed.PUT("/rates", s.SetRate)
	authed.POST("/payday", s.Payday)
	authed.POST("/payday/async", s.PaydayAsync)
	authed.GET("/payday/result/:taskId", s.GetPaydayResult)
	authed.POST("/owner", s.TransferOwnership)
	authed.POST("/oracle", s.SetOracle)
	authed.POST("/terminate", s.Terminate)

	return e
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Payroll ledger is running")
}

// RefreshToken trades a still valid bearer token for a fresh one issued to
// the same caller.
func (s *Server) RefreshToken(c echo.Context) error {
	tokenStr := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	token, err := s.authService.RefreshToken(tokenStr)
	if err != nil {
		s.logger.Warnf("fail to refresh token, err: %v", err)
		return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "Unauthorized"})
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
