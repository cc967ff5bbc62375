package application

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

var ErrAirdropDisabled = fmt.Errorf("airdrops are not available on this cluster")

// FundingService is a thin passthrough to the network for balances and test
// airdrops. Airdrops are refused when disabled, which is the case on
// mainnet-beta.
type FundingService struct {
	network        ports.Network
	airdropEnabled bool

	log func(format string, a ...interface{})
}

func NewFundingService(
	network ports.Network, airdropEnabled bool,
) *FundingService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("funding service: %s", format)
		log.Debugf(format, a...)
	}
	return &FundingService{network, airdropEnabled, logFn}
}

func (fs *FundingService) GetBalance(
	ctx context.Context, address solana.PublicKey,
) (uint64, error) {
	return fs.network.GetBalance(ctx, address)
}

// EnsureMinimumFunds requests an airdrop of target lamports if the balance of
// the given address is below threshold, then waits for it to confirm.
// It returns the resulting balance.
func (fs *FundingService) EnsureMinimumFunds(
	ctx context.Context, address solana.PublicKey, target, threshold uint64,
) (uint64, error) {
	balance, err := fs.network.GetBalance(ctx, address)
	if err != nil {
		return 0, err
	}
	if balance >= threshold {
		return balance, nil
	}
	if !fs.airdropEnabled {
		return 0, ErrAirdropDisabled
	}

	fs.log(
		"balance of %s is %d, below %d, requesting airdrop of %d lamports",
		address, balance, threshold, target,
	)
	sig, err := fs.network.RequestAirdrop(ctx, address, target)
	if err != nil {
		return 0, fmt.Errorf("failed to request airdrop: %w", err)
	}
	if err := fs.network.AwaitConfirmation(
		ctx, sig, domain.StatusConfirmed,
	); err != nil {
		return 0, fmt.Errorf("failed to confirm airdrop: %w", err)
	}
	return fs.network.GetBalance(ctx, address)
}
