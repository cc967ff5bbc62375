package domain_test

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	blockhash = solana.HashFromBytes(repeat(7, 32))
	nonceHash = solana.HashFromBytes(repeat(9, 32))
)

func TestNewIntent(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	nonceAccount := newKey(t).PublicKey()
	transfer := transferIx(t, alice.PublicKey(), bob.PublicKey(), 1000)

	t.Run("valid", func(t *testing.T) {
		intent, err := domain.NewIntent(
			[]domain.Instruction{transfer}, bob.PublicKey(),
			domain.ShortLivedAnchor(blockhash),
		)
		require.NoError(t, err)
		require.NotNil(t, intent)
		require.Equal(t, bob.PublicKey(), intent.FeePayer())
		require.Equal(t, bob.PublicKey(), intent.RequiredSigners()[0])
		require.ElementsMatch(
			t, []solana.PublicKey{alice.PublicKey(), bob.PublicKey()},
			intent.MissingSigners(),
		)
		require.False(t, intent.IsSigned())
		require.False(t, intent.IsComplete())
		require.Len(t, intent.Instructions(), 1)
		require.NotEmpty(t, intent.ID())
	})

	t.Run("durable", func(t *testing.T) {
		anchor := domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash)
		intent, err := domain.NewIntent(
			[]domain.Instruction{transfer}, bob.PublicKey(), anchor,
		)
		require.NoError(t, err)

		ixs := intent.Instructions()
		require.Len(t, ixs, 2)
		require.True(t, domain.IsAdvanceNonce(ixs[0]))
		require.Equal(t, nonceAccount, ixs[0].Metas[0].PublicKey)
		require.Len(t, intent.Body(), 1)
		require.Equal(t, anchor, intent.Anchor())

		// Passing the advance explicitly gives the same intent.
		advance, err := domain.NewAdvanceNonceInstruction(
			nonceAccount, bob.PublicKey(),
		)
		require.NoError(t, err)
		same, err := domain.NewIntent(
			[]domain.Instruction{advance, transfer}, bob.PublicKey(), anchor,
		)
		require.NoError(t, err)
		require.Equal(t, intent.ID(), same.ID())
	})

	t.Run("invalid", func(t *testing.T) {
		stranger := newKey(t).PublicKey()
		advance, err := domain.NewAdvanceNonceInstruction(
			nonceAccount, bob.PublicKey(),
		)
		require.NoError(t, err)
		otherAdvance, err := domain.NewAdvanceNonceInstruction(
			newKey(t).PublicKey(), bob.PublicKey(),
		)
		require.NoError(t, err)

		tests := []struct {
			name         string
			instructions []domain.Instruction
			feePayer     solana.PublicKey
			anchor       domain.RecencyAnchor
			expectedErr  error
		}{
			{
				name:        "empty instructions",
				feePayer:    bob.PublicKey(),
				anchor:      domain.ShortLivedAnchor(blockhash),
				expectedErr: domain.ErrEmptyInstructions,
			},
			{
				name:         "missing fee payer",
				instructions: []domain.Instruction{transfer},
				anchor:       domain.ShortLivedAnchor(blockhash),
				expectedErr:  domain.ErrMissingFeePayer,
			},
			{
				name:         "missing blockhash",
				instructions: []domain.Instruction{transfer},
				feePayer:     bob.PublicKey(),
				anchor:       domain.ShortLivedAnchor(solana.Hash{}),
				expectedErr:  domain.ErrInvalidAnchor,
			},
			{
				name:         "nonce authority not a signer",
				instructions: []domain.Instruction{transfer},
				feePayer:     bob.PublicKey(),
				anchor:       domain.DurableAnchor(nonceAccount, stranger, nonceHash),
				expectedErr:  domain.ErrInvalidNonceAuthority,
			},
			{
				name:         "second nonce advance",
				instructions: []domain.Instruction{advance, transfer, advance},
				feePayer:     bob.PublicKey(),
				anchor:       domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash),
				expectedErr:  domain.ErrDuplicateNonceAdvance,
			},
			{
				name:         "advance of another nonce account",
				instructions: []domain.Instruction{otherAdvance, transfer},
				feePayer:     bob.PublicKey(),
				anchor:       domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash),
				expectedErr:  domain.ErrDuplicateNonceAdvance,
			},
			{
				name:         "advance with short-lived anchor",
				instructions: []domain.Instruction{advance, transfer},
				feePayer:     bob.PublicKey(),
				anchor:       domain.ShortLivedAnchor(blockhash),
				expectedErr:  domain.ErrDuplicateNonceAdvance,
			},
			{
				name:         "only the advance",
				instructions: []domain.Instruction{advance},
				feePayer:     bob.PublicKey(),
				anchor:       domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash),
				expectedErr:  domain.ErrEmptyInstructions,
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				intent, err := domain.NewIntent(tt.instructions, tt.feePayer, tt.anchor)
				require.ErrorIs(t, err, tt.expectedErr)
				require.Nil(t, intent)
			})
		}
	})
}

func TestSignOrderIndependence(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	intent := newTransferIntent(t, alice, bob)

	aliceFirst, err := intent.Sign(alice)
	require.NoError(t, err)
	require.False(t, aliceFirst.IsComplete())
	require.True(t, aliceFirst.IsSignedBy(alice.PublicKey()))
	require.False(t, intent.IsSigned())

	aliceFirst, err = aliceFirst.Sign(bob)
	require.NoError(t, err)

	bobFirst, err := intent.Sign(bob)
	require.NoError(t, err)
	bobFirst, err = bobFirst.Sign(alice)
	require.NoError(t, err)

	require.True(t, aliceFirst.IsComplete())
	require.True(t, bobFirst.IsComplete())

	p1, err := aliceFirst.Serialize()
	require.NoError(t, err)
	p2, err := bobFirst.Serialize()
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	require.Equal(t, bobFirst.Slots()[0].Signature, bobFirst.Signature())
}

func TestSignUnauthorized(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	intent := newTransferIntent(t, alice, bob)

	signed, err := intent.Sign(newKey(t))
	require.ErrorIs(t, err, domain.ErrUnauthorizedSigner)
	require.Nil(t, signed)
}

func TestSerializeRoundTrip(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	nonceAccount := newKey(t).PublicKey()

	unsigned := newTransferIntent(t, alice, bob)
	half, err := unsigned.Sign(alice)
	require.NoError(t, err)
	full, err := half.Sign(bob)
	require.NoError(t, err)

	durable, err := domain.NewIntent(
		[]domain.Instruction{
			transferCheckedIx(t, alice.PublicKey(), bob.PublicKey(), 500000),
		},
		bob.PublicKey(), domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash),
	)
	require.NoError(t, err)
	durableHalf, err := durable.Sign(bob)
	require.NoError(t, err)

	draft, err := domain.NewIntent(
		[]domain.Instruction{transferIx(t, alice.PublicKey(), bob.PublicKey(), 1)},
		bob.PublicKey(), domain.PendingAnchor(),
	)
	require.NoError(t, err)

	tests := []struct {
		name   string
		intent *domain.Intent
	}{
		{"unsigned", unsigned},
		{"partially signed", half},
		{"fully signed", full},
		{"durable", durable},
		{"durable partially signed", durableHalf},
		{"draft", draft},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			payload, err := tt.intent.Serialize()
			require.NoError(t, err)

			intent, err := domain.DeserializeIntent(payload)
			require.NoError(t, err)
			require.Equal(t, tt.intent.ID(), intent.ID())
			require.Equal(t, tt.intent.Anchor(), intent.Anchor())
			require.Equal(t, tt.intent.FeePayer(), intent.FeePayer())
			require.Equal(t, tt.intent.Slots(), intent.Slots())
			require.Equal(t, tt.intent.Instructions(), intent.Instructions())
			require.Equal(t, tt.intent.Message(), intent.Message())

			again, err := intent.Serialize()
			require.NoError(t, err)
			require.Equal(t, payload, again)
		})
	}
}

func TestDeserializeMalformed(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	intent, err := newTransferIntent(t, alice, bob).Sign(alice)
	require.NoError(t, err)
	raw, err := intent.WireBytes()
	require.NoError(t, err)

	tampered := append([]byte{}, raw...)
	tampered[len(tampered)-1] ^= 0xff

	trailing := append(append([]byte{}, raw...), 0x00)

	// Drop one signature from the compact array.
	truncated := append([]byte{0x01}, raw[1+64:]...)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte("")},
		{"not base64", []byte("not a valid payload!")},
		{"garbage", encode([]byte{0x01, 0x02, 0x03})},
		{"tampered message", encode(tampered)},
		{"trailing bytes", encode(trailing)},
		{"signature count mismatch", encode(truncated)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			intent, err := domain.DeserializeIntent(tt.payload)
			require.ErrorIs(t, err, domain.ErrMalformedIntent)
			require.Nil(t, intent)
		})
	}
}

func TestDraftAnchor(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	nonceAccount := newKey(t).PublicKey()

	draft, err := domain.NewIntent(
		[]domain.Instruction{
			transferCheckedIx(t, alice.PublicKey(), bob.PublicKey(), 500000),
		},
		bob.PublicKey(), domain.PendingAnchor(),
	)
	require.NoError(t, err)
	require.True(t, draft.Anchor().IsPending())

	signed, err := draft.Sign(alice)
	require.ErrorIs(t, err, domain.ErrAnchorPending)
	require.Nil(t, signed)

	sealed, err := draft.WithAnchor(
		domain.DurableAnchor(nonceAccount, bob.PublicKey(), nonceHash),
	)
	require.NoError(t, err)
	require.True(t, sealed.Anchor().IsDurable())
	require.Len(t, sealed.Instructions(), 2)
	require.NotEqual(t, draft.ID(), sealed.ID())

	signed, err = sealed.Sign(bob)
	require.NoError(t, err)

	resealed, err := signed.WithAnchor(domain.ShortLivedAnchor(blockhash))
	require.ErrorIs(t, err, domain.ErrAnchorSealed)
	require.Nil(t, resealed)
}

func TestCombine(t *testing.T) {
	alice, bob := newKey(t), newKey(t)
	intent := newTransferIntent(t, alice, bob)

	byAlice, err := intent.Sign(alice)
	require.NoError(t, err)
	byBob, err := intent.Sign(bob)
	require.NoError(t, err)

	combined, err := byAlice.Combine(byBob)
	require.NoError(t, err)
	require.True(t, combined.IsComplete())

	expected, err := byAlice.Sign(bob)
	require.NoError(t, err)
	require.Equal(t, expected.Slots(), combined.Slots())

	other := newTransferIntent(t, alice, newKey(t))
	_, err = byAlice.Combine(other)
	require.ErrorIs(t, err, domain.ErrIntentMismatch)
}

func newKey(t *testing.T) solana.PrivateKey {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func newTransferIntent(t *testing.T, from, feePayer solana.PrivateKey) *domain.Intent {
	intent, err := domain.NewIntent(
		[]domain.Instruction{
			transferIx(t, from.PublicKey(), feePayer.PublicKey(), 1000000),
		},
		feePayer.PublicKey(), domain.ShortLivedAnchor(blockhash),
	)
	require.NoError(t, err)
	return intent
}

func transferIx(
	t *testing.T, from, to solana.PublicKey, lamports uint64,
) domain.Instruction {
	ix, err := domain.NewInstruction(
		system.NewTransferInstruction(lamports, from, to).Build(),
	)
	require.NoError(t, err)
	return ix
}

func transferCheckedIx(
	t *testing.T, owner, receiver solana.PublicKey, amount uint64,
) domain.Instruction {
	mint := solana.PublicKeyFromBytes(repeat(3, 32))
	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	dest, _, err := solana.FindAssociatedTokenAddress(receiver, mint)
	require.NoError(t, err)

	ix, err := domain.NewInstruction(
		token.NewTransferCheckedInstruction(
			amount, 9, source, mint, dest, owner, nil,
		).Build(),
	)
	require.NoError(t, err)
	return ix
}

func encode(raw []byte) []byte {
	return []byte(base64.StdEncoding.EncodeToString(raw))
}

func repeat(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
