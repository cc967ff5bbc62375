package simnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/network/simnet"
)

var ctx = context.Background()

func TestTransfer(t *testing.T) {
	clock := simnet.NewManualClock(time.Now())
	ledger := simnet.New(simnet.Options{Now: clock.Now})
	alice, bob := newKey(t), newKey(t)

	_, err := ledger.RequestAirdrop(ctx, alice.PublicKey(), 2*solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	transfer := system.NewTransferInstruction(
		1000000, alice.PublicKey(), bob.PublicKey(),
	).Build()

	t.Run("valid", func(t *testing.T) {
		raw := signedTx(t, ledger, alice.PublicKey(), []solana.Instruction{transfer}, alice)
		sig, err := ledger.SendTransaction(ctx, raw)
		require.NoError(t, err)

		status, err := ledger.GetSignatureStatus(ctx, sig)
		require.NoError(t, err)
		require.Equal(t, domain.StatusFinalized, status)
		require.NoError(t, ledger.AwaitConfirmation(ctx, sig, domain.StatusConfirmed))

		balance, err := ledger.GetBalance(ctx, bob.PublicKey())
		require.NoError(t, err)
		require.Equal(t, uint64(1000000), balance)

		balance, err = ledger.GetBalance(ctx, alice.PublicKey())
		require.NoError(t, err)
		require.Equal(t, 2*solana.LAMPORTS_PER_SOL-1000000-5000, balance)

		_, err = ledger.SendTransaction(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)
	})

	t.Run("invalid signature", func(t *testing.T) {
		tx, err := solana.NewTransaction(
			[]solana.Instruction{transfer}, latest(t, ledger),
			solana.TransactionPayer(alice.PublicKey()),
		)
		require.NoError(t, err)
		tx.Signatures = []solana.Signature{{}}
		raw, err := tx.MarshalBinary()
		require.NoError(t, err)

		_, err = ledger.SendTransaction(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)
	})

	t.Run("stale blockhash", func(t *testing.T) {
		raw := signedTx(t, ledger, alice.PublicKey(), []solana.Instruction{
			system.NewTransferInstruction(1, alice.PublicKey(), bob.PublicKey()).Build(),
		}, alice)
		clock.Advance(2 * time.Minute)

		_, err := ledger.SendTransaction(ctx, raw)
		require.ErrorIs(t, err, domain.ErrStaleAnchor)
	})

	t.Run("insufficient funds reverts", func(t *testing.T) {
		before, err := ledger.GetBalance(ctx, bob.PublicKey())
		require.NoError(t, err)

		raw := signedTx(t, ledger, alice.PublicKey(), []solana.Instruction{
			system.NewTransferInstruction(10, alice.PublicKey(), bob.PublicKey()).Build(),
			system.NewTransferInstruction(
				10*solana.LAMPORTS_PER_SOL, alice.PublicKey(), bob.PublicKey(),
			).Build(),
		}, alice)
		_, err = ledger.SendTransaction(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)

		after, err := ledger.GetBalance(ctx, bob.PublicKey())
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestDurableNonce(t *testing.T) {
	ledger := simnet.New(simnet.Options{})
	payer, nonce := newKey(t), newKey(t)

	_, err := ledger.RequestAirdrop(ctx, payer.PublicKey(), solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	rent, err := ledger.GetMinimumBalanceForRentExemption(ctx, domain.NonceAccountLength)
	require.NoError(t, err)

	raw := signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent, domain.NonceAccountLength, solana.SystemProgramID,
			payer.PublicKey(), nonce.PublicKey(),
		).Build(),
		system.NewInitializeNonceAccountInstruction(
			payer.PublicKey(), nonce.PublicKey(),
			solana.SysVarRecentBlockHashesPubkey, solana.SysVarRentPubkey,
		).Build(),
	}, payer, nonce)
	_, err = ledger.SendTransaction(ctx, raw)
	require.NoError(t, err)

	state, err := ledger.GetNonce(ctx, nonce.PublicKey())
	require.NoError(t, err)
	require.Equal(t, payer.PublicKey(), state.Authority)

	advance := system.NewAdvanceNonceAccountInstruction(
		nonce.PublicKey(), solana.SysVarRecentBlockHashesPubkey, payer.PublicKey(),
	).Build()
	transfer := system.NewTransferInstruction(
		1, payer.PublicKey(), nonce.PublicKey(),
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{advance, transfer}, state.Value,
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(signerFn(payer))
	require.NoError(t, err)
	raw, err = tx.MarshalBinary()
	require.NoError(t, err)

	_, err = ledger.SendTransaction(ctx, raw)
	require.NoError(t, err)

	next, err := ledger.GetNonce(ctx, nonce.PublicKey())
	require.NoError(t, err)
	require.NotEqual(t, state.Value, next.Value)

	_, err = ledger.SendTransaction(ctx, raw)
	require.ErrorIs(t, err, domain.ErrStaleAnchor)
}

func TestMultisigMint(t *testing.T) {
	ledger := simnet.New(simnet.Options{})
	payer, owner := newKey(t), newKey(t)
	signer1, signer2, signer3 := newKey(t), newKey(t), newKey(t)
	mintKey, multisigKey := newKey(t), newKey(t)
	mint, multisig := mintKey.PublicKey(), multisigKey.PublicKey()
	signers := []solana.PublicKey{
		signer1.PublicKey(), signer2.PublicKey(), signer3.PublicKey(),
	}

	_, err := ledger.RequestAirdrop(ctx, payer.PublicKey(), solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	t.Run("invalid initialization", func(t *testing.T) {
		tests := []struct {
			name string
			ixs  []solana.Instruction
		}{
			{
				name: "threshold above signers",
				ixs: []solana.Instruction{
					createTokenOwned(t, ledger, payer, multisigKey, domain.MultisigAccountLength),
					token.NewInitializeMultisig2Instruction(4, multisig, signers).Build(),
				},
			},
			{
				name: "wrong account size",
				ixs: []solana.Instruction{
					createTokenOwned(t, ledger, payer, mintKey, domain.MultisigAccountLength),
					token.NewInitializeMint2Instruction(
						9, payer.PublicKey(), payer.PublicKey(), mint,
					).Build(),
				},
			},
			{
				name: "not allocated",
				ixs: []solana.Instruction{
					token.NewInitializeMint2Instruction(
						9, payer.PublicKey(), payer.PublicKey(), mint,
					).Build(),
				},
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				raw := signedTx(
					t, ledger, payer.PublicKey(), tt.ixs, payer, mintKey, multisigKey,
				)
				_, err := ledger.SendTransaction(ctx, raw)
				require.ErrorIs(t, err, domain.ErrNetworkRejection)
			})
		}
	})

	raw := signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
		createTokenOwned(t, ledger, payer, multisigKey, domain.MultisigAccountLength),
		token.NewInitializeMultisig2Instruction(2, multisig, signers).Build(),
	}, payer, multisigKey)
	_, err = ledger.SendTransaction(ctx, raw)
	require.NoError(t, err)

	raw = signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
		createTokenOwned(t, ledger, payer, mintKey, domain.MintAccountLength),
		token.NewInitializeMint2Instruction(9, multisig, multisig, mint).Build(),
	}, payer, mintKey)
	_, err = ledger.SendTransaction(ctx, raw)
	require.NoError(t, err)

	raw = signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
		token.NewInitializeMint2Instruction(9, payer.PublicKey(), payer.PublicKey(), mint).Build(),
	}, payer)
	_, err = ledger.SendTransaction(ctx, raw)
	require.ErrorIs(t, err, domain.ErrNetworkRejection)

	ata, _, err := solana.FindAssociatedTokenAddress(owner.PublicKey(), mint)
	require.NoError(t, err)
	raw = signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
		associatedtokenaccount.NewCreateInstruction(
			payer.PublicKey(), owner.PublicKey(), mint,
		).Build(),
	}, payer)
	_, err = ledger.SendTransaction(ctx, raw)
	require.NoError(t, err)

	exists, err := ledger.AccountExists(ctx, ata)
	require.NoError(t, err)
	require.True(t, exists)

	t.Run("below quorum", func(t *testing.T) {
		raw := signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
			token.NewMintToInstruction(
				1, mint, ata, multisig, []solana.PublicKey{signer1.PublicKey()},
			).Build(),
		}, payer, signer1)
		_, err := ledger.SendTransaction(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)
	})

	t.Run("quorum", func(t *testing.T) {
		raw := signedTx(t, ledger, payer.PublicKey(), []solana.Instruction{
			token.NewMintToInstruction(
				1000, mint, ata, multisig,
				[]solana.PublicKey{signer1.PublicKey(), signer3.PublicKey()},
			).Build(),
		}, payer, signer1, signer3)
		_, err := ledger.SendTransaction(ctx, raw)
		require.NoError(t, err)

		balance, err := ledger.GetTokenBalance(ctx, ata)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), balance)

		supply, err := ledger.TokenSupply(mint)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), supply)
	})
}

func createTokenOwned(
	t *testing.T, ledger *simnet.Ledger, payer, account solana.PrivateKey,
	size uint64,
) solana.Instruction {
	rent, err := ledger.GetMinimumBalanceForRentExemption(ctx, size)
	require.NoError(t, err)
	return system.NewCreateAccountInstruction(
		rent, size, solana.TokenProgramID, payer.PublicKey(), account.PublicKey(),
	).Build()
}

func newKey(t *testing.T) solana.PrivateKey {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func latest(t *testing.T, ledger *simnet.Ledger) solana.Hash {
	hash, err := ledger.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	return hash
}

func signedTx(
	t *testing.T, ledger *simnet.Ledger, payer solana.PublicKey,
	ixs []solana.Instruction, signers ...solana.PrivateKey,
) []byte {
	tx, err := solana.NewTransaction(
		ixs, latest(t, ledger), solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	_, err = tx.Sign(signerFn(signers...))
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func signerFn(keys ...solana.PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		for _, k := range keys {
			if k.PublicKey().Equals(key) {
				k := k
				return &k
			}
		}
		return nil
	}
}
