package domain

import (
	"bytes"
	"encoding/base64"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// WireBytes returns the intent in the network wire format: the compact
// array of signatures, zero-filled for empty slots, followed by the message.
func (i *Intent) WireBytes() ([]byte, error) {
	tx := &solana.Transaction{
		Signatures: i.signatures(),
		Message:    i.message,
	}
	return tx.MarshalBinary()
}

// Transaction returns an independent copy of the intent as a solana
// transaction.
func (i *Intent) Transaction() (*solana.Transaction, error) {
	raw, err := i.WireBytes()
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
}

// Serialize returns the handoff payload of the intent, the base64 encoding of
// its wire bytes.
func (i *Intent) Serialize() ([]byte, error) {
	raw, err := i.WireBytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(buf, raw)
	return buf, nil
}

// DeserializeIntent parses a handoff payload.
func DeserializeIntent(payload []byte) (*Intent, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, malformed("empty payload")
	}
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, payload)
	if err != nil {
		return nil, malformed("invalid base64: %s", err)
	}
	return DecodeIntent(raw[:n])
}

// DecodeIntent parses the wire bytes of a transaction and validates it.
// The message must be the canonical compilation of the instructions it
// carries and every filled slot must verify.
func DecodeIntent(raw []byte) (intent *Intent, err error) {
	defer func() {
		if r := recover(); r != nil {
			intent, err = nil, malformed("invalid transaction: %v", r)
		}
	}()

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, malformed("invalid transaction: %s", err)
	}
	reencoded, err := tx.MarshalBinary()
	if err != nil {
		return nil, malformed("invalid transaction: %s", err)
	}
	if !bytes.Equal(reencoded, raw) {
		return nil, malformed("unexpected trailing or non canonical bytes")
	}

	msg := tx.Message
	numSigners := int(msg.Header.NumRequiredSignatures)
	if numSigners == 0 || numSigners > len(msg.AccountKeys) {
		return nil, malformed("invalid message header")
	}
	if len(tx.Signatures) != numSigners {
		return nil, malformed(
			"got %d signatures, expected %d", len(tx.Signatures), numSigners,
		)
	}

	ixs, err := decompile(msg)
	if err != nil {
		return nil, err
	}
	feePayer := msg.AccountKeys[0]
	anchor, err := anchorFromMessage(ixs, msg.RecentBlockhash)
	if err != nil {
		return nil, err
	}
	if err := checkLayout(ixs, feePayer, anchor); err != nil {
		return nil, malformed("%s", err)
	}

	canonical, err := compile(ixs, feePayer, msg.RecentBlockhash)
	if err != nil {
		return nil, malformed("%s", err)
	}
	msgBytes, err := msg.MarshalBinary()
	if err != nil {
		return nil, malformed("%s", err)
	}
	canonicalBytes, err := canonical.MarshalBinary()
	if err != nil {
		return nil, malformed("%s", err)
	}
	if !bytes.Equal(msgBytes, canonicalBytes) {
		return nil, malformed("message is not in canonical form")
	}

	intent, err = newIntent(ixs, feePayer, anchor, canonical, tx.Signatures)
	if err != nil {
		return nil, err
	}
	for _, slot := range intent.slots {
		if !slot.IsFilled() {
			continue
		}
		if anchor.IsPending() {
			return nil, malformed("draft intent can't carry signatures")
		}
		if !verify(slot.Signer, intent.messageBytes, slot.Signature) {
			return nil, malformed("invalid signature for %s", slot.Signer)
		}
	}
	return intent, nil
}

func (i *Intent) signatures() []solana.Signature {
	sigs := make([]solana.Signature, 0, len(i.slots))
	for _, s := range i.slots {
		sigs = append(sigs, s.Signature)
	}
	return sigs
}
