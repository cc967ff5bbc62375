package application_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	tokenDecimals = uint8(6)
	mintedAmount  = uint64(1000000)
	tokenTransfer = uint64(500000)
)

func TestTokenService(t *testing.T) {
	t.Run("two_party_token_transfer", func(t *testing.T) {
		for _, feePayerFirst := range []bool{false, true} {
			testTokenTransfer(t, feePayerFirst)
		}
	})

	t.Run("multisig_mint", func(t *testing.T) {
		ledger, _ := newLedger()
		payer, owner := newKey(t), newKey(t)
		cosigners := []solana.PrivateKey{newKey(t), newKey(t), newKey(t)}
		multisigKey, mintKey := newKey(t), newKey(t)
		multisig, mint := multisigKey.PublicKey(), mintKey.PublicKey()
		fund(t, ledger, payer)

		pubkeys := make([]solana.PublicKey, 0, len(cosigners))
		for _, k := range cosigners {
			pubkeys = append(pubkeys, k.PublicKey())
		}
		svc := application.NewTokenService(
			ledger, application.NewAssemblerService(ledger),
		)

		_, err := svc.CreateMultisig(ctx, payer, multisigKey, 2, pubkeys)
		require.NoError(t, err)
		_, err = svc.CreateMint(ctx, payer, mintKey, multisig, tokenDecimals)
		require.NoError(t, err)

		_, err = svc.CreateMint(ctx, payer, mintKey, multisig, tokenDecimals)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)

		_, err = svc.MintTo(ctx, application.MintToArgs{
			Payer:     payer,
			Mint:      mint,
			Owner:     owner.PublicKey(),
			Authority: multisig,
			Signers:   []domain.Signer{cosigners[0]},
			Amount:    mintedAmount,
		})
		require.ErrorIs(t, err, domain.ErrNetworkRejection)

		_, err = svc.MintTo(ctx, application.MintToArgs{
			Payer:     payer,
			Mint:      mint,
			Owner:     owner.PublicKey(),
			Authority: multisig,
			Signers:   []domain.Signer{cosigners[0], cosigners[2]},
			Amount:    mintedAmount,
		})
		require.NoError(t, err)

		balance, err := svc.TokenBalance(ctx, owner.PublicKey(), mint)
		require.NoError(t, err)
		require.Equal(t, mintedAmount, balance)

		supply, err := ledger.TokenSupply(mint)
		require.NoError(t, err)
		require.Equal(t, mintedAmount, supply)
	})

	t.Run("invalid_multisig", func(t *testing.T) {
		svc := application.NewTokenService(nil, nil)
		payer, key := newKey(t), newKey(t)
		signers := []solana.PublicKey{newKey(t).PublicKey(), newKey(t).PublicKey()}

		tests := []struct {
			name    string
			m       uint8
			signers []solana.PublicKey
			err     error
		}{
			{
				name:    "zero_threshold",
				m:       0,
				signers: signers,
				err:     application.ErrInvalidThreshold,
			},
			{
				name:    "threshold_above_signers",
				m:       3,
				signers: signers,
				err:     application.ErrInvalidThreshold,
			},
			{
				name:    "too_many_signers",
				m:       1,
				signers: make([]solana.PublicKey, domain.MaxMultisigSigners+1),
				err:     application.ErrTooManySigners,
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				receipt, err := svc.CreateMultisig(ctx, payer, key, tt.m, tt.signers)
				require.ErrorIs(t, err, tt.err)
				require.Nil(t, receipt)
			})
		}
	})

	t.Run("invalid_args", func(t *testing.T) {
		svc := application.NewTokenService(nil, nil)
		key := newKey(t)

		tests := []struct {
			name string
			args application.TransferArgs
			err  error
		}{
			{
				name: "missing_mint",
				args: application.TransferArgs{
					From: key.PublicKey(), To: key.PublicKey(),
					FeePayer: key.PublicKey(), Amount: 1,
				},
				err: application.ErrMissingMint,
			},
			{
				name: "zero_amount",
				args: application.TransferArgs{
					Mint: key.PublicKey(), From: key.PublicKey(),
					To: key.PublicKey(), FeePayer: key.PublicKey(),
				},
				err: application.ErrZeroAmount,
			},
			{
				name: "draft_with_nonce",
				args: application.TransferArgs{
					Mint: key.PublicKey(), From: key.PublicKey(),
					To: key.PublicKey(), FeePayer: key.PublicKey(), Amount: 1,
					NonceAccount: key.PublicKey(), Draft: true,
				},
				err: application.ErrDraftWithNonce,
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				intent, err := svc.TransferIntent(ctx, tt.args)
				require.ErrorIs(t, err, tt.err)
				require.Nil(t, intent)
			})
		}
	})
}

// testTokenTransfer moves half of the tokens held by the initiator to the
// fee payer, with both signatures exchanged through handoff payloads.
func testTokenTransfer(t *testing.T, feePayerFirst bool) {
	ledger, _ := newLedger()
	authority, alice, bob := newKey(t), newKey(t), newKey(t)
	mintKey := newKey(t)
	mint := mintKey.PublicKey()
	fund(t, ledger, authority, bob)

	assembler := application.NewAssemblerService(ledger)
	svc := application.NewTokenService(ledger, assembler)

	_, err := svc.CreateMint(ctx, authority, mintKey, solana.PublicKey{}, tokenDecimals)
	require.NoError(t, err)

	_, err = svc.MintTo(ctx, application.MintToArgs{
		Payer:     authority,
		Mint:      mint,
		Owner:     alice.PublicKey(),
		Authority: authority.PublicKey(),
		Signers:   []domain.Signer{authority},
		Amount:    mintedAmount,
	})
	require.NoError(t, err)
	_, err = svc.EnsureTokenAccount(ctx, bob, bob.PublicKey(), mint)
	require.NoError(t, err)
	bobInitialBalance, err := svc.TokenBalance(ctx, bob.PublicKey(), mint)
	require.NoError(t, err)

	intent, err := svc.TransferIntent(ctx, application.TransferArgs{
		Mint:     mint,
		Decimals: tokenDecimals,
		From:     alice.PublicKey(),
		To:       bob.PublicKey(),
		Amount:   tokenTransfer,
		FeePayer: bob.PublicKey(),
	})
	require.NoError(t, err)

	signers := []solana.PrivateKey{alice, bob}
	if feePayerFirst {
		signers = []solana.PrivateKey{bob, alice}
	}
	for _, signer := range signers {
		payload, err := assembler.SerializeForHandoff(intent)
		require.NoError(t, err)
		intent, err = assembler.DeserializeFromHandoff(payload)
		require.NoError(t, err)
		intent, err = assembler.PartialSign(intent, signer)
		require.NoError(t, err)
	}

	_, err = assembler.FinalizeAndSubmit(ctx, intent)
	require.NoError(t, err)

	aliceBalance, err := svc.TokenBalance(ctx, alice.PublicKey(), mint)
	require.NoError(t, err)
	require.Equal(t, mintedAmount-tokenTransfer, aliceBalance)

	bobBalance, err := svc.TokenBalance(ctx, bob.PublicKey(), mint)
	require.NoError(t, err)
	require.Equal(t, bobInitialBalance+tokenTransfer, bobBalance)

	// The initiator holds no lamports, the fee payer covers every fee.
	require.Zero(t, balanceOf(t, ledger, alice))
	require.Less(t, balanceOf(t, ledger, bob), solana.LAMPORTS_PER_SOL)
}
