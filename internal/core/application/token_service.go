package application

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// TokenService wraps the token program operations needed around the
// two-party flow:
//   - Create mints and N-of-M multisig accounts to use as mint authority.
//   - Derive and create associated token accounts.
//   - Mint tokens with a plain or an N-of-M multisig mint authority. The quorum is enforced by the token program, not by this service.
//   - Build TransferChecked intents between the associated accounts of two owners, with any fee payer and anchor mode.
type TokenService struct {
	network   ports.Network
	assembler *AssemblerService

	log func(format string, a ...interface{})
}

func NewTokenService(
	network ports.Network, assembler *AssemblerService,
) *TokenService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("token service: %s", format)
		log.Debugf(format, a...)
	}
	return &TokenService{network, assembler, logFn}
}

// CreateMint creates and initializes the mint account of mintKey at payer's
// expense. authority, the payer if empty, is both the mint and the freeze
// authority and can be a multisig account made with CreateMultisig.
func (ts *TokenService) CreateMint(
	ctx context.Context, payer, mintKey domain.Signer,
	authority solana.PublicKey, decimals uint8,
) (*domain.Receipt, error) {
	if payer == nil || mintKey == nil {
		return nil, domain.ErrInvalidSigner
	}
	if authority.IsZero() {
		authority = payer.PublicKey()
	}

	mint := mintKey.PublicKey()
	receipt, err := ts.createTokenOwnedAccount(
		ctx, payer, mintKey, domain.MintAccountLength,
		token.NewInitializeMint2Instruction(
			decimals, authority, authority, mint,
		).Build(),
	)
	if err != nil {
		return nil, err
	}
	ts.log(
		"created mint %s with %d decimals (authority %s)", mint, decimals, authority,
	)
	return receipt, nil
}

// CreateMultisig creates and initializes an m-of-n multisig account at
// payer's expense.
func (ts *TokenService) CreateMultisig(
	ctx context.Context, payer, multisigKey domain.Signer,
	m uint8, signers []solana.PublicKey,
) (*domain.Receipt, error) {
	if payer == nil || multisigKey == nil {
		return nil, domain.ErrInvalidSigner
	}
	if len(signers) > domain.MaxMultisigSigners {
		return nil, ErrTooManySigners
	}
	if m == 0 || int(m) > len(signers) {
		return nil, ErrInvalidThreshold
	}
	for _, s := range signers {
		if s.IsZero() {
			return nil, domain.ErrInvalidSigner
		}
	}

	account := multisigKey.PublicKey()
	receipt, err := ts.createTokenOwnedAccount(
		ctx, payer, multisigKey, domain.MultisigAccountLength,
		token.NewInitializeMultisig2Instruction(m, account, signers).Build(),
	)
	if err != nil {
		return nil, err
	}
	ts.log("created %d-of-%d multisig %s", m, len(signers), account)
	return receipt, nil
}

// AssociatedAddress returns the associated token account of owner for mint.
func (ts *TokenService) AssociatedAddress(
	owner, mint solana.PublicKey,
) (solana.PublicKey, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf(
			"failed to derive token account of %s: %w", owner, err,
		)
	}
	return address, nil
}

// EnsureTokenAccount returns the associated token account of owner, creating
// it at payer's expense if it doesn't exist yet.
func (ts *TokenService) EnsureTokenAccount(
	ctx context.Context, payer domain.Signer, owner, mint solana.PublicKey,
) (solana.PublicKey, error) {
	address, err := ts.AssociatedAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	exists, err := ts.network.AccountExists(ctx, address)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if exists {
		return address, nil
	}
	if payer == nil {
		return solana.PublicKey{}, domain.ErrInvalidSigner
	}

	ix := associatedtokenaccount.NewCreateInstruction(
		payer.PublicKey(), owner, mint,
	).Build()
	intent, err := ts.assembler.BuildWithLatestBlockhash(
		ctx, []solana.Instruction{ix}, payer.PublicKey(),
	)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if intent, err = ts.assembler.PartialSign(intent, payer); err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := ts.assembler.submitAndConfirm(ctx, intent); err != nil {
		return solana.PublicKey{}, err
	}

	ts.log("created token account %s for owner %s", address, owner)
	return address, nil
}

// MintTo mints args.Amount tokens to the associated account of args.Owner.
func (ts *TokenService) MintTo(
	ctx context.Context, args MintToArgs,
) (*domain.Receipt, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	destination, err := ts.EnsureTokenAccount(
		ctx, args.Payer, args.Owner, args.Mint,
	)
	if err != nil {
		return nil, err
	}

	var multisigSigners []solana.PublicKey
	if args.isMultisig() {
		for _, s := range args.Signers {
			multisigSigners = append(multisigSigners, s.PublicKey())
		}
	}
	ix := token.NewMintToInstruction(
		args.Amount, args.Mint, destination, args.Authority, multisigSigners,
	).Build()

	intent, err := ts.assembler.BuildWithLatestBlockhash(
		ctx, []solana.Instruction{ix}, args.Payer.PublicKey(),
	)
	if err != nil {
		return nil, err
	}

	signers := append([]domain.Signer{args.Payer}, args.Signers...)
	for _, signer := range signers {
		if intent.IsSignedBy(signer.PublicKey()) {
			continue
		}
		if intent, err = ts.assembler.PartialSign(intent, signer); err != nil {
			return nil, err
		}
	}

	receipt, err := ts.assembler.submitAndConfirm(ctx, intent)
	if err != nil {
		return nil, err
	}
	ts.log(
		"minted %d units of %s to %s (authority %s, %d co-signer(s))",
		args.Amount, args.Mint, destination, args.Authority, len(multisigSigners),
	)
	return receipt, nil
}

// TransferIntent builds the unsigned TransferChecked intent moving tokens
// between the associated accounts of args.From and args.To.
func (ts *TokenService) TransferIntent(
	ctx context.Context, args TransferArgs,
) (*domain.Intent, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	source, err := ts.AssociatedAddress(args.From, args.Mint)
	if err != nil {
		return nil, err
	}
	destination, err := ts.AssociatedAddress(args.To, args.Mint)
	if err != nil {
		return nil, err
	}

	ixs := []solana.Instruction{
		token.NewTransferCheckedInstruction(
			args.Amount, args.Decimals, source, args.Mint, destination,
			args.From, nil,
		).Build(),
	}

	switch {
	case args.Draft:
		return ts.assembler.BuildDraft(ixs, args.FeePayer)
	case !args.NonceAccount.IsZero():
		return ts.assembler.BuildWithNonce(ctx, ixs, args.FeePayer, args.NonceAccount)
	default:
		return ts.assembler.BuildWithLatestBlockhash(ctx, ixs, args.FeePayer)
	}
}

// TokenBalance returns the raw amount held by the associated account of
// owner for mint.
func (ts *TokenService) TokenBalance(
	ctx context.Context, owner, mint solana.PublicKey,
) (uint64, error) {
	address, err := ts.AssociatedAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	return ts.network.GetTokenBalance(ctx, address)
}

// createTokenOwnedAccount allocates a rent exempt account of the given size
// owned by the token program and runs initIx on it in the same transaction.
func (ts *TokenService) createTokenOwnedAccount(
	ctx context.Context, payer, accountKey domain.Signer, size uint64,
	initIx solana.Instruction,
) (*domain.Receipt, error) {
	rent, err := ts.network.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return nil, err
	}

	ixs := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent, size, solana.TokenProgramID,
			payer.PublicKey(), accountKey.PublicKey(),
		).Build(),
		initIx,
	}
	intent, err := ts.assembler.BuildWithLatestBlockhash(ctx, ixs, payer.PublicKey())
	if err != nil {
		return nil, err
	}
	for _, signer := range []domain.Signer{payer, accountKey} {
		if intent, err = ts.assembler.PartialSign(intent, signer); err != nil {
			return nil, err
		}
	}
	return ts.assembler.submitAndConfirm(ctx, intent)
}
