package application_test

import (
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/network/simnet"
)

const transferAmount = uint64(1000000)

var blockhashLifetime = time.Duration(simnet.DefaultMaxBlockhashAge+1) *
	simnet.DefaultSlotDuration

func TestAssemblerService(t *testing.T) {
	testBuildIntent(t)

	testTwoPartyTransfer(t)

	testFinalizeAndSubmit(t)

	testDurableNonce(t)

	testCounterpartyNonce(t)
}

func testBuildIntent(t *testing.T) {
	t.Run("build_intent", func(t *testing.T) {
		alice, bob := newKey(t), newKey(t)
		blockhash := solana.HashFromBytes(alice.PublicKey().Bytes())

		network := &mockNetwork{}
		network.On("GetLatestBlockhash", mock.Anything).Return(blockhash, nil)
		svc := application.NewAssemblerService(network)

		intent, err := svc.BuildWithLatestBlockhash(
			ctx, transferIxs(alice, bob), bob.PublicKey(),
		)
		require.NoError(t, err)
		require.Equal(t, domain.ShortLivedAnchor(blockhash), intent.Anchor())
		require.Equal(t, bob.PublicKey(), intent.FeePayer())
		require.ElementsMatch(
			t, []solana.PublicKey{alice.PublicKey(), bob.PublicKey()},
			intent.MissingSigners(),
		)

		_, err = svc.BuildIntent(nil, bob.PublicKey(), domain.ShortLivedAnchor(blockhash))
		require.ErrorIs(t, err, domain.ErrEmptyInstructions)

		_, err = svc.BuildIntent(
			transferIxs(alice, bob), solana.PublicKey{},
			domain.ShortLivedAnchor(blockhash),
		)
		require.ErrorIs(t, err, domain.ErrMissingFeePayer)

		_, err = svc.PartialSign(intent, newKey(t))
		require.ErrorIs(t, err, domain.ErrUnauthorizedSigner)
	})
}

func testTwoPartyTransfer(t *testing.T) {
	orders := map[string]func(a, b solana.PrivateKey) []solana.PrivateKey{
		"initiator_first": func(a, b solana.PrivateKey) []solana.PrivateKey {
			return []solana.PrivateKey{a, b}
		},
		"fee_payer_first": func(a, b solana.PrivateKey) []solana.PrivateKey {
			return []solana.PrivateKey{b, a}
		},
	}

	for name, order := range orders {
		order := order
		t.Run(name, func(t *testing.T) {
			ledger, _ := newLedger()
			alice, bob := newKey(t), newKey(t)
			fund(t, ledger, alice, bob)
			svc := application.NewAssemblerService(ledger)

			intent, err := svc.BuildWithLatestBlockhash(
				ctx, transferIxs(alice, bob), bob.PublicKey(),
			)
			require.NoError(t, err)

			// Every signature travels through a handoff payload.
			for _, signer := range order(alice, bob) {
				payload, err := svc.SerializeForHandoff(intent)
				require.NoError(t, err)
				intent, err = svc.DeserializeFromHandoff(payload)
				require.NoError(t, err)
				intent, err = svc.PartialSign(intent, signer)
				require.NoError(t, err)
			}
			require.True(t, intent.IsComplete())

			receipt, err := svc.FinalizeAndSubmit(ctx, intent)
			require.NoError(t, err)
			require.Equal(t, intent.Signature(), receipt.Signature)
			require.Equal(t, intent.ID(), receipt.IntentID)
			require.NoError(t, svc.AwaitConfirmation(ctx, receipt, domain.StatusFinalized))

			require.Equal(
				t, solana.LAMPORTS_PER_SOL-transferAmount, balanceOf(t, ledger, alice),
			)
			require.Equal(
				t, solana.LAMPORTS_PER_SOL+transferAmount-2*simnet.DefaultLamportsPerSignature,
				balanceOf(t, ledger, bob),
			)
		})
	}

	t.Run("order_independence", func(t *testing.T) {
		ledger, _ := newLedger()
		alice, bob := newKey(t), newKey(t)
		svc := application.NewAssemblerService(ledger)

		intent, err := svc.BuildWithLatestBlockhash(
			ctx, transferIxs(alice, bob), bob.PublicKey(),
		)
		require.NoError(t, err)

		ab, err := svc.PartialSign(intent, alice)
		require.NoError(t, err)
		ab, err = svc.PartialSign(ab, bob)
		require.NoError(t, err)

		ba, err := svc.PartialSign(intent, bob)
		require.NoError(t, err)
		ba, err = svc.PartialSign(ba, alice)
		require.NoError(t, err)

		abBytes, err := ab.WireBytes()
		require.NoError(t, err)
		baBytes, err := ba.WireBytes()
		require.NoError(t, err)
		require.Equal(t, abBytes, baBytes)

		onlyAlice, err := svc.PartialSign(intent, alice)
		require.NoError(t, err)
		onlyBob, err := svc.PartialSign(intent, bob)
		require.NoError(t, err)
		combined, err := svc.Combine(onlyAlice, onlyBob)
		require.NoError(t, err)
		combinedBytes, err := combined.WireBytes()
		require.NoError(t, err)
		require.Equal(t, abBytes, combinedBytes)
	})
}

func testFinalizeAndSubmit(t *testing.T) {
	t.Run("incomplete_signatures", func(t *testing.T) {
		alice, bob := newKey(t), newKey(t)
		blockhash := solana.HashFromBytes(bob.PublicKey().Bytes())
		network := &mockNetwork{}
		svc := application.NewAssemblerService(network)

		intent, err := svc.BuildIntent(
			transferIxs(alice, bob), bob.PublicKey(),
			domain.ShortLivedAnchor(blockhash),
		)
		require.NoError(t, err)
		intent, err = svc.PartialSign(intent, alice)
		require.NoError(t, err)

		receipt, err := svc.FinalizeAndSubmit(ctx, intent)
		require.ErrorIs(t, err, domain.ErrIncompleteSignatures)
		require.Contains(t, err.Error(), bob.PublicKey().String())
		require.Nil(t, receipt)
		network.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("pending_anchor", func(t *testing.T) {
		alice, bob := newKey(t), newKey(t)
		network := &mockNetwork{}
		svc := application.NewAssemblerService(network)

		draft, err := svc.BuildDraft(transferIxs(alice, bob), bob.PublicKey())
		require.NoError(t, err)

		_, err = svc.PartialSign(draft, alice)
		require.ErrorIs(t, err, domain.ErrAnchorPending)

		_, err = svc.FinalizeAndSubmit(ctx, draft)
		require.ErrorIs(t, err, domain.ErrAnchorPending)
		network.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("stale_anchor", func(t *testing.T) {
		ledger, clock := newLedger()
		alice, bob := newKey(t), newKey(t)
		fund(t, ledger, alice, bob)
		svc := application.NewAssemblerService(ledger)

		intent := signedTransfer(t, svc, alice, bob)
		clock.Advance(blockhashLifetime)

		receipt, err := svc.FinalizeAndSubmit(ctx, intent)
		require.ErrorIs(t, err, domain.ErrStaleAnchor)
		require.Nil(t, receipt)

		var rejection *domain.RejectionError
		require.ErrorAs(t, err, &rejection)
		require.Equal(t, intent.Signature(), rejection.Signature)
		require.Equal(t, intent.Anchor(), rejection.Anchor)

		refreshed, err := svc.RefreshAnchor(ctx, intent)
		require.NoError(t, err)
		require.NotEqual(t, intent.ID(), refreshed.ID())
		require.False(t, refreshed.IsSigned())

		for _, signer := range []solana.PrivateKey{alice, bob} {
			refreshed, err = svc.PartialSign(refreshed, signer)
			require.NoError(t, err)
		}
		_, err = svc.FinalizeAndSubmit(ctx, refreshed)
		require.NoError(t, err)
	})

	t.Run("network_rejection", func(t *testing.T) {
		ledger, _ := newLedger()
		alice, bob := newKey(t), newKey(t)
		// The fee payer has no funds.
		fund(t, ledger, alice)
		svc := application.NewAssemblerService(ledger)

		intent := signedTransfer(t, svc, alice, bob)
		_, err := svc.FinalizeAndSubmit(ctx, intent)
		require.ErrorIs(t, err, domain.ErrNetworkRejection)
		require.NotErrorIs(t, err, domain.ErrStaleAnchor)
	})

	t.Run("transport_failure", func(t *testing.T) {
		alice, bob := newKey(t), newKey(t)
		blockhash := solana.HashFromBytes(alice.PublicKey().Bytes())
		network := &mockNetwork{}
		network.On("GetLatestBlockhash", mock.Anything).Return(blockhash, nil)
		network.On("SendTransaction", mock.Anything, mock.Anything).
			Return(solana.Signature{}, errSomethingWentWrong)
		svc := application.NewAssemblerService(network)

		intent := signedTransfer(t, svc, alice, bob)
		_, err := svc.FinalizeAndSubmit(ctx, intent)
		require.ErrorIs(t, err, errSomethingWentWrong)

		var rejection *domain.RejectionError
		require.False(t, errors.As(err, &rejection))
	})
}

func testDurableNonce(t *testing.T) {
	t.Run("durable_nonce", func(t *testing.T) {
		ledger, clock := newLedger()
		alice, bob, nonceKey := newKey(t), newKey(t), newKey(t)
		fund(t, ledger, alice, bob)
		svc := application.NewAssemblerService(ledger)
		nonceSvc := application.NewNonceService(ledger, svc)

		_, err := nonceSvc.CreateNonceAccount(
			ctx, bob, nonceKey, solana.PublicKey{},
		)
		require.NoError(t, err)
		nonce, err := nonceSvc.GetNonce(ctx, nonceKey.PublicKey())
		require.NoError(t, err)
		require.Equal(t, bob.PublicKey(), nonce.Authority)

		intent, err := svc.BuildWithNonce(
			ctx, transferIxs(alice, bob), bob.PublicKey(), nonceKey.PublicKey(),
		)
		require.NoError(t, err)
		require.True(t, intent.Anchor().IsDurable())
		require.Equal(t, nonce.Value, intent.Anchor().Value)
		require.Len(t, intent.Instructions(), 2)
		require.True(t, domain.IsAdvanceNonce(intent.Instructions()[0]))

		for _, signer := range []solana.PrivateKey{alice, bob} {
			intent, err = svc.PartialSign(intent, signer)
			require.NoError(t, err)
		}

		// A durable intent outlives any blockhash.
		clock.Advance(10 * blockhashLifetime)

		receipt, err := svc.FinalizeAndSubmit(ctx, intent)
		require.NoError(t, err)
		require.True(t, receipt.Anchor.IsDurable())

		advanced, err := nonceSvc.GetNonce(ctx, nonceKey.PublicKey())
		require.NoError(t, err)
		require.NotEqual(t, nonce.Value, advanced.Value)

		_, err = svc.FinalizeAndSubmit(ctx, intent)
		require.ErrorIs(t, err, domain.ErrNonceMismatch)

		refreshed, err := svc.RefreshAnchor(ctx, intent)
		require.NoError(t, err)
		require.Equal(t, advanced.Value, refreshed.Anchor().Value)
		require.Len(t, refreshed.Instructions(), 2)
	})
}

func testCounterpartyNonce(t *testing.T) {
	t.Run("counterparty_nonce", func(t *testing.T) {
		ledger, clock := newLedger()
		alice, bob, nonceKey := newKey(t), newKey(t), newKey(t)
		fund(t, ledger, alice, bob)
		svc := application.NewAssemblerService(ledger)
		nonceSvc := application.NewNonceService(ledger, svc)

		_, err := nonceSvc.CreateNonceAccount(
			ctx, bob, nonceKey, bob.PublicKey(),
		)
		require.NoError(t, err)

		// The initiator drafts the intent without any anchor.
		draft, err := svc.BuildDraft(transferIxs(alice, bob), bob.PublicKey())
		require.NoError(t, err)
		payload, err := svc.SerializeForHandoff(draft)
		require.NoError(t, err)

		// The fee payer attaches its own nonce and signs first.
		received, err := svc.DeserializeFromHandoff(payload)
		require.NoError(t, err)
		require.True(t, received.Anchor().IsPending())
		sealed, err := svc.AttachNonce(ctx, received, nonceKey.PublicKey())
		require.NoError(t, err)
		require.Equal(t, nonceKey.PublicKey(), sealed.Anchor().NonceAccount)
		sealed, err = svc.PartialSign(sealed, bob)
		require.NoError(t, err)

		_, err = svc.AttachNonce(ctx, sealed, nonceKey.PublicKey())
		require.ErrorIs(t, err, domain.ErrAnchorSealed)

		payload, err = svc.SerializeForHandoff(sealed)
		require.NoError(t, err)

		// Back to the initiator, who can take its time before signing.
		clock.Advance(blockhashLifetime)
		intent, err := svc.DeserializeFromHandoff(payload)
		require.NoError(t, err)
		intent, err = svc.PartialSign(intent, alice)
		require.NoError(t, err)

		_, err = svc.FinalizeAndSubmit(ctx, intent)
		require.NoError(t, err)
		require.Equal(
			t, solana.LAMPORTS_PER_SOL-transferAmount, balanceOf(t, ledger, alice),
		)
	})
}

func transferIxs(from, to solana.PrivateKey) []solana.Instruction {
	return []solana.Instruction{
		system.NewTransferInstruction(
			transferAmount, from.PublicKey(), to.PublicKey(),
		).Build(),
	}
}

// signedTransfer returns a complete transfer from alice to bob, fees paid
// by bob.
func signedTransfer(
	t *testing.T, svc *application.AssemblerService, alice, bob solana.PrivateKey,
) *domain.Intent {
	intent, err := svc.BuildWithLatestBlockhash(
		ctx, transferIxs(alice, bob), bob.PublicKey(),
	)
	require.NoError(t, err)
	for _, signer := range []solana.PrivateKey{alice, bob} {
		intent, err = svc.PartialSign(intent, signer)
		require.NoError(t, err)
	}
	return intent
}
