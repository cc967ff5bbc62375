package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// Network is the abstraction of the ledger the intents are submitted to.
type Network interface {
	// GetLatestBlockhash returns a recent blockhash usable as short-lived
	// anchor.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	// GetNonce returns the state of the given durable nonce account.
	GetNonce(
		ctx context.Context, nonceAccount solana.PublicKey,
	) (*domain.NonceState, error)
	// SendTransaction submits the given wire transaction. A refusal of the
	// network is returned as *domain.RejectionError, any other error is a
	// transport failure.
	SendTransaction(ctx context.Context, rawTx []byte) (solana.Signature, error)
	// GetSignatureStatus returns the confirmation status of a transaction.
	GetSignatureStatus(
		ctx context.Context, sig solana.Signature,
	) (domain.ConfirmationStatus, error)
	// AwaitConfirmation blocks until the transaction reaches the given
	// status, fails or the context is done.
	AwaitConfirmation(
		ctx context.Context, sig solana.Signature,
		status domain.ConfirmationStatus,
	) error
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	RequestAirdrop(
		ctx context.Context, account solana.PublicKey, lamports uint64,
	) (solana.Signature, error)
	GetMinimumBalanceForRentExemption(
		ctx context.Context, size uint64,
	) (uint64, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	// GetTokenBalance returns the raw amount held by a token account.
	GetTokenBalance(
		ctx context.Context, tokenAccount solana.PublicKey,
	) (uint64, error)
	Close()
}
