package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/payroll"
)

// Backend is the subset of ethclient.Client the ERC20 ledger needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account gcommon.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *gtypes.Transaction) error
	TransactionByHash(ctx context.Context, hash gcommon.Hash) (*gtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash gcommon.Hash) (*gtypes.Receipt, error)
}

var _ payroll.TokenLedger = &ERC20Ledger{}

// ERC20Ledger drives an ERC20 contract from the treasury account. Every
// transfer is signed locally and waited on until it is mined.
type ERC20Ledger struct {
	backend  Backend
	token    gcommon.Address
	key      *ecdsa.PrivateKey
	from     gcommon.Address
	chainID  *big.Int
	abi      abi.ABI
	nonces   *NonceManager
	logger   *logrus.Logger
	gasBoost uint64

	monitorTimeout time.Duration
	pollInterval   time.Duration
}

type ERC20Config struct {
	Token          gcommon.Address
	ChainID        *big.Int
	Key            *ecdsa.PrivateKey
	GasBoostPct    uint64
	MonitorTimeout time.Duration
	PollInterval   time.Duration
}

func NewERC20Ledger(backend Backend, nonces *NonceManager, cfg ERC20Config, logger *logrus.Logger) (*ERC20Ledger, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if cfg.Key == nil {
		return nil, fmt.Errorf("signing key cannot be nil")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id cannot be nil")
	}
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	if nonces == nil {
		nonces = NewNonceManager(backend)
	}
	if logger == nil {
		logger = logrus.WithField("module", "erc20_ledger").Logger
	}
	l := &ERC20Ledger{
		backend:        backend,
		token:          cfg.Token,
		key:            cfg.Key,
		from:           crypto.PubkeyToAddress(cfg.Key.PublicKey),
		chainID:        cfg.ChainID,
		abi:            parsedABI,
		nonces:         nonces,
		logger:         logger,
		gasBoost:       cfg.GasBoostPct,
		monitorTimeout: cfg.MonitorTimeout,
		pollInterval:   cfg.PollInterval,
	}
	if l.gasBoost == 0 {
		l.gasBoost = 20
	}
	if l.monitorTimeout == 0 {
		l.monitorTimeout = 5 * time.Minute
	}
	if l.pollInterval == 0 {
		l.pollInterval = 15 * time.Second
	}
	return l, nil
}

// Sender is the treasury account that signs transfers.
func (l *ERC20Ledger) Sender() gcommon.Address {
	return l.from
}

func (l *ERC20Ledger) BalanceOf(ctx context.Context, holder gcommon.Address) (*big.Int, error) {
	data, err := l.abi.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}
	out, err := l.backend.CallContract(ctx, ethereum.CallMsg{
		From: l.from,
		To:   &l.token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	values, err := l.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected balanceOf result length %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", values[0])
	}
	return balance, nil
}

func (l *ERC20Ledger) Transfer(ctx context.Context, to gcommon.Address, amount *big.Int) error {
	data, err := l.abi.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer data: %w", err)
	}
	return l.send(ctx, data, logrus.Fields{"method": "transfer", "to": to.Hex(), "amount": amount.String()})
}

func (l *ERC20Ledger) TransferFrom(ctx context.Context, from, to gcommon.Address, amount *big.Int) error {
	data, err := l.abi.Pack("transferFrom", from, to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom data: %w", err)
	}
	return l.send(ctx, data, logrus.Fields{"method": "transferFrom", "from": from.Hex(), "to": to.Hex(), "amount": amount.String()})
}

func (l *ERC20Ledger) send(ctx context.Context, data []byte, fields logrus.Fields) error {
	callMsg := ethereum.CallMsg{
		From:  l.from,
		To:    &l.token,
		Data:  data,
		Value: big.NewInt(0),
	}
	gasLimit, err := l.backend.EstimateGas(ctx, callMsg)
	if err != nil {
		return fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = gasLimit * (100 + l.gasBoost) / 100

	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	nonce, err := l.nonces.GetNextNonce(ctx, l.from)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := gtypes.NewTx(&gtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &l.token,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signedTx, err := gtypes.SignTx(tx, gtypes.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	logger := l.logger.WithFields(fields).WithFields(logrus.Fields{
		"token":     l.token.Hex(),
		"nonce":     nonce,
		"gas_limit": gasLimit,
		"gas_price": gasPrice.String(),
		"hash":      signedTx.Hash().Hex(),
	})

	if err := l.backend.SendTransaction(ctx, signedTx); err != nil {
		l.nonces.ResetNonce(l.from)
		logger.WithError(err).Error("Failed to broadcast transaction")
		return classifyBroadcastError(err, l.from)
	}
	logger.Info("Transaction successfully broadcast")

	return l.waitMined(ctx, signedTx)
}
