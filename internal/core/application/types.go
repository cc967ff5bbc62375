package application

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	ErrMissingPayer     = fmt.Errorf("missing payer")
	ErrMissingMint      = fmt.Errorf("missing mint")
	ErrMissingOwner     = fmt.Errorf("missing token owner")
	ErrMissingReceiver  = fmt.Errorf("missing token receiver")
	ErrMissingAuthority = fmt.Errorf("missing mint authority")
	ErrZeroAmount       = fmt.Errorf("amount must be greater than zero")
	ErrDraftWithNonce   = fmt.Errorf(
		"a draft can't carry a nonce, the counterparty attaches it",
	)
	ErrInvalidThreshold = fmt.Errorf(
		"multisig threshold must be between 1 and the number of signers",
	)
	ErrTooManySigners = fmt.Errorf(
		"a multisig can't list more than %d signers", domain.MaxMultisigSigners,
	)
)

type MintToArgs struct {
	Payer domain.Signer
	Mint  solana.PublicKey
	// Owner receives the tokens in its associated token account.
	Owner solana.PublicKey
	// Authority is the mint authority, either a plain key or a multisig.
	Authority solana.PublicKey
	// Signers is the authority itself or the multisig co-signers.
	Signers []domain.Signer
	Amount  uint64
}

func (a MintToArgs) validate() error {
	if a.Payer == nil {
		return ErrMissingPayer
	}
	if a.Mint.IsZero() {
		return ErrMissingMint
	}
	if a.Owner.IsZero() {
		return ErrMissingOwner
	}
	if a.Authority.IsZero() {
		return ErrMissingAuthority
	}
	if a.Amount == 0 {
		return ErrZeroAmount
	}
	for _, s := range a.Signers {
		if s == nil {
			return domain.ErrInvalidSigner
		}
	}
	return nil
}

func (a MintToArgs) isMultisig() bool {
	return !(len(a.Signers) == 1 && a.Signers[0].PublicKey().Equals(a.Authority))
}

type TransferArgs struct {
	Mint     solana.PublicKey
	Decimals uint8
	// From owns the source tokens and signs the transfer.
	From     solana.PublicKey
	To       solana.PublicKey
	Amount   uint64
	FeePayer solana.PublicKey
	// NonceAccount, if set, anchors the intent to the durable nonce of the
	// initiator.
	NonceAccount solana.PublicKey
	// Draft leaves the anchor pending for the counterparty to attach its
	// own nonce.
	Draft bool
}

func (a TransferArgs) validate() error {
	if a.Mint.IsZero() {
		return ErrMissingMint
	}
	if a.From.IsZero() {
		return ErrMissingOwner
	}
	if a.To.IsZero() {
		return ErrMissingReceiver
	}
	if a.FeePayer.IsZero() {
		return domain.ErrMissingFeePayer
	}
	if a.Amount == 0 {
		return ErrZeroAmount
	}
	if a.Draft && !a.NonceAccount.IsZero() {
		return ErrDraftWithNonce
	}
	return nil
}

// HandoffInfo is a relay mailbox entry as returned to interfaces.
type HandoffInfo domain.Handoff

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}
