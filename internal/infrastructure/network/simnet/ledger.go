// Package simnet is an in-process ledger implementing ports.Network. It
// mimics the subset of the Solana runtime needed by the cosigner: blockhash
// expiry, durable nonces, fees, system transfers, nonce accounts, token
// mints/transfers with multisig authorities and associated token accounts.
package simnet

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

const (
	DefaultSlotDuration         = 400 * time.Millisecond
	DefaultMaxBlockhashAge      = 150
	DefaultLamportsPerSignature = 5000

	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2

	tokenAccountLength = 165
)

// Options customizes the ledger. Zero values are replaced by defaults.
type Options struct {
	// Now is the clock of the ledger, tests inject a fake one to expire
	// blockhashes.
	Now                  func() time.Time
	SlotDuration         time.Duration
	MaxBlockhashAge      uint64
	LamportsPerSignature uint64
	// AirdropLimit caps a single airdrop, 0 means no cap.
	AirdropLimit uint64
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.SlotDuration <= 0 {
		o.SlotDuration = DefaultSlotDuration
	}
	if o.MaxBlockhashAge == 0 {
		o.MaxBlockhashAge = DefaultMaxBlockhashAge
	}
	if o.LamportsPerSignature == 0 {
		o.LamportsPerSignature = DefaultLamportsPerSignature
	}
	return o
}

type Ledger struct {
	opts    Options
	genesis time.Time

	lock        *sync.Mutex
	state       *state
	blockhashes map[solana.Hash]uint64
	statuses    map[solana.Signature]domain.ConfirmationStatus
	counter     uint64
}

func New(opts Options) *Ledger {
	opts = opts.withDefaults()
	return &Ledger{
		opts:        opts,
		genesis:     opts.Now(),
		lock:        &sync.Mutex{},
		state:       newState(),
		blockhashes: make(map[solana.Hash]uint64),
		statuses:    make(map[solana.Signature]domain.ConfirmationStatus),
	}
}

// NewNetwork returns the ledger as a ports.Network.
func NewNetwork(opts Options) ports.Network {
	return New(opts)
}

func (l *Ledger) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := ctx.Err(); err != nil {
		return solana.Hash{}, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	slot := l.currentSlot()
	hash := l.blockhashForSlot(slot)
	if _, ok := l.blockhashes[hash]; !ok {
		l.blockhashes[hash] = slot
	}
	return hash, nil
}

func (l *Ledger) GetNonce(
	ctx context.Context, nonceAccount solana.PublicKey,
) (*domain.NonceState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	nonce, ok := l.state.nonces[nonceAccount]
	if !ok {
		return nil, fmt.Errorf("nonce account %s not found", nonceAccount)
	}
	return &nonce, nil
}

func (l *Ledger) SendTransaction(
	ctx context.Context, rawTx []byte,
) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return solana.Signature{}, domain.NewRejection(
			fmt.Sprintf("failed to deserialize transaction: %s", err),
		)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.execute(tx); err != nil {
		log.WithError(err).Debug("simnet: transaction rejected")
		return solana.Signature{}, err
	}

	sig := tx.Signatures[0]
	l.statuses[sig] = domain.StatusFinalized
	log.Debugf("simnet: transaction %s finalized", sig)
	return sig, nil
}

func (l *Ledger) GetSignatureStatus(
	ctx context.Context, sig solana.Signature,
) (domain.ConfirmationStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.StatusUnknown, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.statuses[sig], nil
}

func (l *Ledger) AwaitConfirmation(
	ctx context.Context, sig solana.Signature, status domain.ConfirmationStatus,
) error {
	current, err := l.GetSignatureStatus(ctx, sig)
	if err != nil {
		return err
	}
	if current.Reached(status) {
		return nil
	}
	if current == domain.StatusFailed {
		return fmt.Errorf("transaction %s failed", sig)
	}
	return fmt.Errorf("transaction %s not found", sig)
}

func (l *Ledger) GetBalance(
	ctx context.Context, account solana.PublicKey,
) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.state.lamports[account], nil
}

func (l *Ledger) RequestAirdrop(
	ctx context.Context, account solana.PublicKey, lamports uint64,
) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if l.opts.AirdropLimit > 0 && lamports > l.opts.AirdropLimit {
		return solana.Signature{}, fmt.Errorf(
			"airdrop request exceeds limit of %d lamports", l.opts.AirdropLimit,
		)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	l.state.lamports[account] += lamports
	l.counter++
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, l.counter)
	sum := sha512.Sum512(append([]byte("simnet airdrop"), buf...))
	sig := solana.SignatureFromBytes(sum[:])
	l.statuses[sig] = domain.StatusFinalized
	return sig, nil
}

func (l *Ledger) GetMinimumBalanceForRentExemption(
	ctx context.Context, size uint64,
) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return rentExemption(size), nil
}

func (l *Ledger) AccountExists(
	ctx context.Context, account solana.PublicKey,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.state.exists(account), nil
}

func (l *Ledger) GetTokenBalance(
	ctx context.Context, tokenAccount solana.PublicKey,
) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	account, ok := l.state.tokenAccounts[tokenAccount]
	if !ok {
		return 0, fmt.Errorf("token account %s not found", tokenAccount)
	}
	return account.amount, nil
}

func (l *Ledger) Close() {}

// TokenSupply returns the supply of the given mint.
func (l *Ledger) TokenSupply(mint solana.PublicKey) (uint64, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	m, ok := l.state.mints[mint]
	if !ok {
		return 0, fmt.Errorf("mint %s not found", mint)
	}
	return m.supply, nil
}

func (l *Ledger) currentSlot() uint64 {
	elapsed := l.opts.Now().Sub(l.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / l.opts.SlotDuration)
}

func (l *Ledger) blockhashForSlot(slot uint64) solana.Hash {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], uint64(l.genesis.UnixNano()))
	binary.LittleEndian.PutUint64(buf[8:], slot)
	sum := sha256.Sum256(append([]byte("simnet blockhash"), buf...))
	return solana.HashFromBytes(sum[:])
}

func (l *Ledger) isRecent(hash solana.Hash) bool {
	slot, ok := l.blockhashes[hash]
	if !ok {
		return false
	}
	return l.currentSlot()-slot <= l.opts.MaxBlockhashAge
}

func (l *Ledger) nextNonceValue(account solana.PublicKey) solana.Hash {
	l.counter++
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, l.counter)
	current := l.blockhashForSlot(l.currentSlot())
	data := append([]byte("DURABLE_NONCE"), current[:]...)
	data = append(data, account[:]...)
	data = append(data, buf...)
	sum := sha256.Sum256(data)
	return solana.HashFromBytes(sum[:])
}

func rentExemption(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThreshold
}
