package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testService = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testAsset   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testHolder  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestMemoryMintAndBalance(t *testing.T) {
	m := NewMemory(testService)
	m.Register(testAsset)
	m.Mint(testAsset, testHolder, big.NewInt(500))

	bal, err := m.BalanceOf(context.Background(), testAsset, testHolder)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance = %s, want 500", bal)
	}

	// Returned balance must be a copy.
	bal.SetInt64(0)
	again, _ := m.BalanceOf(context.Background(), testAsset, testHolder)
	if again.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance aliased: %s", again)
	}
}

func TestMemoryTransferFrom(t *testing.T) {
	m := NewMemory(testService)
	m.Mint(testAsset, testHolder, big.NewInt(100))

	if err := m.TransferFrom(context.Background(), testAsset, testHolder, testService, big.NewInt(60)); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}

	holderBal, _ := m.BalanceOf(context.Background(), testAsset, testHolder)
	serviceBal, _ := m.BalanceOf(context.Background(), testAsset, testService)
	if holderBal.Cmp(big.NewInt(40)) != 0 || serviceBal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("balances = %s / %s, want 40 / 60", holderBal, serviceBal)
	}
}

func TestMemoryTransferInsufficient(t *testing.T) {
	m := NewMemory(testService)
	m.Mint(testAsset, testService, big.NewInt(10))

	err := m.Transfer(context.Background(), testAsset, testHolder, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Failed transfer must not move funds.
	bal, _ := m.BalanceOf(context.Background(), testAsset, testService)
	if bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("service balance = %s, want 10", bal)
	}
}

func TestMemoryIsContract(t *testing.T) {
	m := NewMemory(testService)
	m.Register(testAsset)

	if ok, _ := m.IsContract(context.Background(), testAsset); !ok {
		t.Fatal("registered asset should be a contract")
	}
	if ok, _ := m.IsContract(context.Background(), testHolder); ok {
		t.Fatal("unregistered address should not be a contract")
	}
}

func TestMemoryZeroMoveOnUnmintedAsset(t *testing.T) {
	m := NewMemory(testService)
	m.Register(testAsset)

	// No mint has ever touched the asset; a zero-amount move must be a no-op.
	if err := m.TransferFrom(context.Background(), testAsset, testHolder, testService, big.NewInt(0)); err != nil {
		t.Fatalf("zero-amount TransferFrom: %v", err)
	}

	holderBal, _ := m.BalanceOf(context.Background(), testAsset, testHolder)
	serviceBal, _ := m.BalanceOf(context.Background(), testAsset, testService)
	if holderBal.Sign() != 0 || serviceBal.Sign() != 0 {
		t.Fatalf("balances = %s / %s, want 0 / 0", holderBal, serviceBal)
	}
}
