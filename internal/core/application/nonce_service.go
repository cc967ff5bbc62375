package application

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// NonceService creates and reads durable nonce accounts.
type NonceService struct {
	network   ports.Network
	assembler *AssemblerService

	log func(format string, a ...interface{})
}

func NewNonceService(
	network ports.Network, assembler *AssemblerService,
) *NonceService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("nonce service: %s", format)
		log.Debugf(format, a...)
	}
	return &NonceService{network, assembler, logFn}
}

// CreateNonceAccount creates and initializes the nonce account of the given
// key, funded by payer with the rent-exempt minimum and controlled by
// authority.
func (ns *NonceService) CreateNonceAccount(
	ctx context.Context, payer, nonceKey domain.Signer,
	authority solana.PublicKey,
) (*domain.Receipt, error) {
	if payer == nil || nonceKey == nil {
		return nil, domain.ErrInvalidSigner
	}
	if authority.IsZero() {
		authority = payer.PublicKey()
	}

	rent, err := ns.network.GetMinimumBalanceForRentExemption(
		ctx, domain.NonceAccountLength,
	)
	if err != nil {
		return nil, err
	}

	nonceAccount := nonceKey.PublicKey()
	ixs := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent, domain.NonceAccountLength, solana.SystemProgramID,
			payer.PublicKey(), nonceAccount,
		).Build(),
		system.NewInitializeNonceAccountInstruction(
			authority, nonceAccount,
			solana.SysVarRecentBlockHashesPubkey, solana.SysVarRentPubkey,
		).Build(),
	}

	intent, err := ns.assembler.BuildWithLatestBlockhash(ctx, ixs, payer.PublicKey())
	if err != nil {
		return nil, err
	}
	for _, signer := range []domain.Signer{payer, nonceKey} {
		if intent, err = ns.assembler.PartialSign(intent, signer); err != nil {
			return nil, err
		}
	}

	receipt, err := ns.assembler.submitAndConfirm(ctx, intent)
	if err != nil {
		return nil, err
	}
	ns.log(
		"created nonce account %s with authority %s (rent %d lamports)",
		nonceAccount, authority, rent,
	)
	return receipt, nil
}

func (ns *NonceService) GetNonce(
	ctx context.Context, nonceAccount solana.PublicKey,
) (*domain.NonceState, error) {
	return ns.network.GetNonce(ctx, nonceAccount)
}
