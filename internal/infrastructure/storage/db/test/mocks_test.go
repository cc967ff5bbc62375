package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	ctx                   = context.Background()
	errSomethingWentWrong = fmt.Errorf("something went wrong")
)

func randomKey(t *testing.T) solana.PrivateKey {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func randomHash() solana.Hash {
	key := solana.NewWallet().PublicKey()
	return solana.HashFromBytes(key.Bytes())
}

// randomIntent returns an unsigned transfer from sender to a random
// receiver, fees paid by payer.
func randomIntent(t *testing.T, sender, payer solana.PrivateKey) *domain.Intent {
	ix, err := domain.NewInstruction(
		system.NewTransferInstruction(
			1000000, sender.PublicKey(), solana.NewWallet().PublicKey(),
		).Build(),
	)
	require.NoError(t, err)

	intent, err := domain.NewIntent(
		[]domain.Instruction{ix}, payer.PublicKey(),
		domain.ShortLivedAnchor(randomHash()),
	)
	require.NoError(t, err)
	return intent
}

func randomHandoff(t *testing.T) (*domain.Handoff, *domain.Intent, solana.PrivateKey) {
	sender, payer := randomKey(t), randomKey(t)
	intent := randomIntent(t, sender, payer)
	handoff, err := domain.NewHandoff(intent, time.Now())
	require.NoError(t, err)
	return handoff, intent, sender
}
