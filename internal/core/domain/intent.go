package domain

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer is anything able to produce an ed25519 signature on behalf of a
// public key. solana.PrivateKey satisfies it, the key material is never
// exposed to the intent.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// SignatureSlot is the position reserved to a required signer. The order of
// the slots is the order of the signers in the compiled message.
type SignatureSlot struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

func (s SignatureSlot) IsFilled() bool {
	return !s.Signature.IsZero()
}

// Intent is an immutable transaction under construction: the canonical list
// of instructions, the fee payer, the recency anchor and one signature slot
// per required signer. Every signing step returns a new Intent.
type Intent struct {
	instructions []Instruction
	feePayer     solana.PublicKey
	anchor       RecencyAnchor
	message      solana.Message
	messageBytes []byte
	slots        []SignatureSlot
}

// NewIntent compiles the given instructions. For durable anchors the nonce
// advance instruction is prepended unless the caller already put it first.
func NewIntent(
	instructions []Instruction, feePayer solana.PublicKey, anchor RecencyAnchor,
) (*Intent, error) {
	if len(instructions) == 0 {
		return nil, ErrEmptyInstructions
	}
	if feePayer.IsZero() {
		return nil, ErrMissingFeePayer
	}
	if err := anchor.validate(); err != nil {
		return nil, err
	}

	ixs := cloneInstructions(instructions)
	if anchor.IsDurable() && !IsAdvanceNonce(ixs[0]) {
		advance, err := NewAdvanceNonceInstruction(
			anchor.NonceAccount, anchor.NonceAuthority,
		)
		if err != nil {
			return nil, err
		}
		ixs = append([]Instruction{advance}, ixs...)
	}
	if err := checkLayout(ixs, feePayer, anchor); err != nil {
		return nil, err
	}

	canonical, msg, err := compileCanonical(ixs, feePayer, anchor.Value)
	if err != nil {
		return nil, err
	}
	return newIntent(canonical, feePayer, anchor, msg, nil)
}

// ID returns the base58 SHA-256 of the compiled message, shared by every
// partially signed copy of the intent.
func (i *Intent) ID() string {
	sum := sha256.Sum256(i.messageBytes)
	return solana.HashFromBytes(sum[:]).String()
}

func (i *Intent) FeePayer() solana.PublicKey {
	return i.feePayer
}

func (i *Intent) Anchor() RecencyAnchor {
	return i.anchor
}

// Instructions returns a copy of the canonical instruction list, nonce
// advance included.
func (i *Intent) Instructions() []Instruction {
	return cloneInstructions(i.instructions)
}

// Body returns the instructions without the nonce advance.
func (i *Intent) Body() []Instruction {
	if i.anchor.IsDurable() {
		return cloneInstructions(i.instructions[1:])
	}
	return cloneInstructions(i.instructions)
}

// Message returns the bytes every signer signs.
func (i *Intent) Message() []byte {
	return append([]byte{}, i.messageBytes...)
}

func (i *Intent) Slots() []SignatureSlot {
	return append([]SignatureSlot{}, i.slots...)
}

func (i *Intent) RequiredSigners() []solana.PublicKey {
	signers := make([]solana.PublicKey, 0, len(i.slots))
	for _, s := range i.slots {
		signers = append(signers, s.Signer)
	}
	return signers
}

func (i *Intent) MissingSigners() []solana.PublicKey {
	missing := make([]solana.PublicKey, 0)
	for _, s := range i.slots {
		if !s.IsFilled() {
			missing = append(missing, s.Signer)
		}
	}
	return missing
}

func (i *Intent) IsComplete() bool {
	return len(i.MissingSigners()) == 0
}

// IsSigned returns whether at least one slot is filled.
func (i *Intent) IsSigned() bool {
	for _, s := range i.slots {
		if s.IsFilled() {
			return true
		}
	}
	return false
}

func (i *Intent) IsSignedBy(key solana.PublicKey) bool {
	idx := i.slotIndex(key)
	return idx >= 0 && i.slots[idx].IsFilled()
}

// Signature returns the fee payer signature, which is the id of the
// transaction on the network once submitted.
func (i *Intent) Signature() solana.Signature {
	return i.slots[0].Signature
}

// Sign returns a copy of the intent with the signer's slot filled.
func (i *Intent) Sign(signer Signer) (*Intent, error) {
	if i.anchor.IsPending() {
		return nil, ErrAnchorPending
	}
	if signer == nil {
		return nil, ErrInvalidSigner
	}

	key := signer.PublicKey()
	idx := i.slotIndex(key)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedSigner, key)
	}

	sig, err := signer.Sign(i.Message())
	if err != nil {
		return nil, fmt.Errorf("failed to sign intent: %w", err)
	}
	if !verify(key, i.messageBytes, sig) {
		return nil, fmt.Errorf("%w: signature does not match %s", ErrInvalidSigner, key)
	}

	next := i.copy()
	next.slots[idx].Signature = sig
	return next, nil
}

// Combine merges the filled slots of another copy of the same intent.
func (i *Intent) Combine(other *Intent) (*Intent, error) {
	if other == nil || !bytes.Equal(i.messageBytes, other.messageBytes) {
		return nil, ErrIntentMismatch
	}
	next := i.copy()
	for idx, slot := range other.slots {
		if slot.IsFilled() && !next.slots[idx].IsFilled() {
			next.slots[idx].Signature = slot.Signature
		}
	}
	return next, nil
}

// WithAnchor seals a new recency anchor into an unsigned intent. It's how a
// counterparty attaches its own nonce to a draft.
func (i *Intent) WithAnchor(anchor RecencyAnchor) (*Intent, error) {
	if i.IsSigned() {
		return nil, ErrAnchorSealed
	}
	return NewIntent(i.Body(), i.feePayer, anchor)
}

func (i *Intent) slotIndex(key solana.PublicKey) int {
	for idx, s := range i.slots {
		if s.Signer.Equals(key) {
			return idx
		}
	}
	return -1
}

func (i *Intent) copy() *Intent {
	return &Intent{
		instructions: i.instructions,
		feePayer:     i.feePayer,
		anchor:       i.anchor,
		message:      i.message,
		messageBytes: i.messageBytes,
		slots:        append([]SignatureSlot{}, i.slots...),
	}
}

func newIntent(
	ixs []Instruction, feePayer solana.PublicKey, anchor RecencyAnchor,
	msg solana.Message, sigs []solana.Signature,
) (*Intent, error) {
	msgBytes, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	numSigners := int(msg.Header.NumRequiredSignatures)
	if numSigners == 0 || numSigners > len(msg.AccountKeys) {
		return nil, malformed("invalid number of required signatures %d", numSigners)
	}
	if sigs != nil && len(sigs) != numSigners {
		return nil, malformed(
			"got %d signatures, expected %d", len(sigs), numSigners,
		)
	}

	slots := make([]SignatureSlot, numSigners)
	for idx := range slots {
		slots[idx].Signer = msg.AccountKeys[idx]
		if sigs != nil {
			slots[idx].Signature = sigs[idx]
		}
	}

	return &Intent{
		instructions: ixs,
		feePayer:     feePayer,
		anchor:       anchor,
		message:      msg,
		messageBytes: msgBytes,
		slots:        slots,
	}, nil
}

// checkLayout enforces the placement of the nonce advance instruction.
func checkLayout(
	ixs []Instruction, feePayer solana.PublicKey, anchor RecencyAnchor,
) error {
	body := ixs
	if anchor.IsDurable() {
		if len(ixs) == 0 || !IsAdvanceNonce(ixs[0]) {
			return fmt.Errorf("%w: missing nonce advance", ErrInvalidAnchor)
		}
		if !matchesAnchor(ixs[0], anchor) {
			return fmt.Errorf(
				"%w: leading advance does not match the nonce anchor",
				ErrDuplicateNonceAdvance,
			)
		}
		body = ixs[1:]
	}
	if len(body) == 0 {
		return ErrEmptyInstructions
	}
	for _, ix := range body {
		if IsAdvanceNonce(ix) {
			return ErrDuplicateNonceAdvance
		}
	}

	if !anchor.IsDurable() {
		return nil
	}
	if anchor.NonceAuthority.Equals(feePayer) {
		return nil
	}
	for _, ix := range body {
		for _, signer := range ix.Signers() {
			if signer.Equals(anchor.NonceAuthority) {
				return nil
			}
		}
	}
	return ErrInvalidNonceAuthority
}

func matchesAnchor(advance Instruction, anchor RecencyAnchor) bool {
	if len(advance.Metas) != 3 {
		return false
	}
	return advance.Metas[0].PublicKey.Equals(anchor.NonceAccount) &&
		advance.Metas[2].PublicKey.Equals(anchor.NonceAuthority)
}

// anchorFromMessage infers the recency anchor of a decoded message: a zero
// blockhash is a draft, a leading nonce advance is a durable anchor.
func anchorFromMessage(
	ixs []Instruction, blockhash solana.Hash,
) (RecencyAnchor, error) {
	if blockhash.IsZero() {
		return PendingAnchor(), nil
	}
	if len(ixs) > 0 && IsAdvanceNonce(ixs[0]) {
		advance := ixs[0]
		if len(advance.Metas) != 3 {
			return RecencyAnchor{}, malformed("invalid nonce advance accounts")
		}
		return DurableAnchor(
			advance.Metas[0].PublicKey, advance.Metas[2].PublicKey, blockhash,
		), nil
	}
	return ShortLivedAnchor(blockhash), nil
}

func compile(
	ixs []Instruction, feePayer solana.PublicKey, blockhash solana.Hash,
) (solana.Message, error) {
	list := make([]solana.Instruction, 0, len(ixs))
	for _, ix := range ixs {
		list = append(list, ix)
	}
	tx, err := solana.NewTransaction(
		list, blockhash, solana.TransactionPayer(feePayer),
	)
	if err != nil {
		return solana.Message{}, fmt.Errorf("failed to compile message: %w", err)
	}
	return tx.Message, nil
}

// compileCanonical compiles the instructions, then compiles again their
// decompiled form. The second compilation is a fixed point: decompiling it
// gives back the same instructions, which makes handoffs lossless.
func compileCanonical(
	ixs []Instruction, feePayer solana.PublicKey, blockhash solana.Hash,
) ([]Instruction, solana.Message, error) {
	msg, err := compile(ixs, feePayer, blockhash)
	if err != nil {
		return nil, solana.Message{}, err
	}
	canonical, err := decompile(msg)
	if err != nil {
		return nil, solana.Message{}, err
	}
	msg, err = compile(canonical, feePayer, blockhash)
	if err != nil {
		return nil, solana.Message{}, err
	}
	return canonical, msg, nil
}

func decompile(msg solana.Message) ([]Instruction, error) {
	keys := msg.AccountKeys
	ixs := make([]Instruction, 0, len(msg.Instructions))
	for n, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(keys) {
			return nil, malformed("instruction %d: program index out of range", n)
		}
		metas := make([]solana.AccountMeta, 0, len(ci.Accounts))
		for _, idx := range ci.Accounts {
			if int(idx) >= len(keys) {
				return nil, malformed("instruction %d: account index out of range", n)
			}
			metas = append(metas, solana.AccountMeta{
				PublicKey:  keys[idx],
				IsSigner:   isSignerIndex(msg.Header, int(idx)),
				IsWritable: isWritableIndex(msg.Header, len(keys), int(idx)),
			})
		}
		ixs = append(ixs, Instruction{
			Program: keys[ci.ProgramIDIndex],
			Metas:   metas,
			Payload: append([]byte{}, ci.Data...),
		})
	}
	return ixs, nil
}

func isSignerIndex(h solana.MessageHeader, idx int) bool {
	return idx < int(h.NumRequiredSignatures)
}

func isWritableIndex(h solana.MessageHeader, numKeys, idx int) bool {
	numSigners := int(h.NumRequiredSignatures)
	if idx < numSigners {
		return idx < numSigners-int(h.NumReadonlySignedAccounts)
	}
	return idx < numKeys-int(h.NumReadonlyUnsignedAccounts)
}

func verify(key solana.PublicKey, msg []byte, sig solana.Signature) bool {
	return ed25519.Verify(key[:], msg, sig[:])
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedIntent, fmt.Sprintf(format, a...))
}
