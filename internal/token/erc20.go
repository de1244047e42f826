package token

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const erc20ABIJSON = `[
{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// ERC20Options parameterise the on-chain ledger.
type ERC20Options struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string
	GasLimit   uint64
	Timeout    time.Duration
}

// ERC20 implements Ledger against real ERC-20 contracts via Ethereum RPC.
// Transfers are signed with the configured service key and considered complete
// only once the transaction is mined with a success status.
type ERC20 struct {
	opts      ERC20Options
	logger    zerolog.Logger
	key       *ecdsa.PrivateKey
	account   common.Address
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewERC20 builds the on-chain ledger from options.
func NewERC20(opts ERC20Options, logger zerolog.Logger) (*ERC20, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}
	if opts.ChainID == 0 {
		return nil, errors.New("ethereum chain id not configured")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse service private key: %w", err)
	}

	return &ERC20{
		opts:    opts,
		logger:  logger.With().Str("component", "erc20_ledger").Logger(),
		key:     key,
		account: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Account returns the service account derived from the configured key.
func (e *ERC20) Account() common.Address {
	return e.account
}

func (e *ERC20) getClient(ctx context.Context) (*ethclient.Client, error) {
	e.clientMux.Lock()
	defer e.clientMux.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	client, err := ethclient.DialContext(ctx, e.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	e.client = client
	return client, nil
}

func (e *ERC20) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// IsContract reports whether code is deployed at the asset address.
func (e *ERC20) IsContract(ctx context.Context, asset common.Address) (bool, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	client, err := e.getClient(ctx)
	if err != nil {
		return false, err
	}
	code, err := client.CodeAt(ctx, asset, nil)
	if err != nil {
		return false, fmt.Errorf("code at %s: %w", asset.Hex(), err)
	}
	return len(code) > 0, nil
}

// BalanceOf calls balanceOf(owner) on the asset contract.
func (e *ERC20) BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &asset, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", asset.Hex(), err)
	}

	outputs, err := erc20ABI.Unpack("balanceOf", res)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.New("unexpected balanceOf response")
	}
	balance, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.New("failed to decode balanceOf output")
	}
	return balance, nil
}

// Transfer sends transfer(to, amount) signed by the service key.
func (e *ERC20) Transfer(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	payload, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return err
	}
	return e.send(ctx, asset, payload)
}

// TransferFrom sends transferFrom(from, to, amount) signed by the service key.
func (e *ERC20) TransferFrom(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	payload, err := erc20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return err
	}
	return e.send(ctx, asset, payload)
}

func (e *ERC20) send(ctx context.Context, asset common.Address, payload []byte) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	client, err := e.getClient(ctx)
	if err != nil {
		return err
	}

	nonce, err := client.PendingNonceAt(ctx, e.account)
	if err != nil {
		return fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit := e.opts.GasLimit
	if gasLimit == 0 {
		estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From: e.account,
			To:   &asset,
			Data: payload,
		})
		if err != nil {
			return fmt.Errorf("estimate gas: %w", err)
		}
		gasLimit = estimated
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &asset,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     payload,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(e.opts.ChainID)), e.key)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}

	e.logger.Debug().
		Str("asset", asset.Hex()).
		Str("tx", signed.Hash().Hex()).
		Msg("token transfer submitted")

	receipt, err := bind.WaitMined(ctx, client, signed)
	if err != nil {
		return fmt.Errorf("wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transfer %s reverted: %w", signed.Hash().Hex(), ErrInsufficientBalance)
	}
	return nil
}

var _ Ledger = (*ERC20)(nil)
