package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/network/simnet"
)

var (
	ctx                   = context.Background()
	errSomethingWentWrong = fmt.Errorf("something went wrong")
)

// Network
type mockNetwork struct {
	mock.Mock
}

func (m *mockNetwork) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *mockNetwork) GetNonce(
	ctx context.Context, nonceAccount solana.PublicKey,
) (*domain.NonceState, error) {
	args := m.Called(ctx, nonceAccount)

	var res *domain.NonceState
	if a := args.Get(0); a != nil {
		res = a.(*domain.NonceState)
	}
	return res, args.Error(1)
}

func (m *mockNetwork) SendTransaction(
	ctx context.Context, rawTx []byte,
) (solana.Signature, error) {
	args := m.Called(ctx, rawTx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockNetwork) GetSignatureStatus(
	ctx context.Context, sig solana.Signature,
) (domain.ConfirmationStatus, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(domain.ConfirmationStatus), args.Error(1)
}

func (m *mockNetwork) AwaitConfirmation(
	ctx context.Context, sig solana.Signature, status domain.ConfirmationStatus,
) error {
	args := m.Called(ctx, sig, status)
	return args.Error(0)
}

func (m *mockNetwork) GetBalance(
	ctx context.Context, account solana.PublicKey,
) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockNetwork) RequestAirdrop(
	ctx context.Context, account solana.PublicKey, lamports uint64,
) (solana.Signature, error) {
	args := m.Called(ctx, account, lamports)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockNetwork) GetMinimumBalanceForRentExemption(
	ctx context.Context, size uint64,
) (uint64, error) {
	args := m.Called(ctx, size)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockNetwork) AccountExists(
	ctx context.Context, account solana.PublicKey,
) (bool, error) {
	args := m.Called(ctx, account)
	return args.Bool(0), args.Error(1)
}

func (m *mockNetwork) GetTokenBalance(
	ctx context.Context, tokenAccount solana.PublicKey,
) (uint64, error) {
	args := m.Called(ctx, tokenAccount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockNetwork) Close() {}

func newKey(t *testing.T) solana.PrivateKey {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func newLedger() (*simnet.Ledger, *simnet.ManualClock) {
	clock := simnet.NewManualClock(time.Now())
	return simnet.New(simnet.Options{Now: clock.Now}), clock
}

func fund(t *testing.T, ledger *simnet.Ledger, keys ...solana.PrivateKey) {
	for _, key := range keys {
		_, err := ledger.RequestAirdrop(ctx, key.PublicKey(), solana.LAMPORTS_PER_SOL)
		require.NoError(t, err)
	}
}

func balanceOf(t *testing.T, ledger *simnet.Ledger, key solana.PrivateKey) uint64 {
	balance, err := ledger.GetBalance(ctx, key.PublicKey())
	require.NoError(t, err)
	return balance
}

func randomBlockhash(t *testing.T) solana.Hash {
	return solana.HashFromBytes(newKey(t).PublicKey().Bytes())
}
