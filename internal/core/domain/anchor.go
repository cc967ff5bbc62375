package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	AnchorPending AnchorKind = iota
	AnchorShortLived
	AnchorDurable
)

var anchorKindString = map[AnchorKind]string{
	AnchorPending:    "pending",
	AnchorShortLived: "short-lived",
	AnchorDurable:    "durable",
}

type AnchorKind int

func (k AnchorKind) String() string {
	if s, ok := anchorKindString[k]; ok {
		return s
	}
	return "unknown"
}

func (k AnchorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AnchorKind) UnmarshalText(text []byte) error {
	for kind, str := range anchorKindString {
		if str == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown anchor kind %q", text)
}

// RecencyAnchor is the value that binds an intent to a validity window.
// A short-lived anchor is a recent blockhash, a durable one is the current
// value of a nonce account, a pending one is the placeholder of a draft
// waiting for the counterparty to attach its nonce.
type RecencyAnchor struct {
	Kind           AnchorKind
	Value          solana.Hash
	NonceAccount   solana.PublicKey
	NonceAuthority solana.PublicKey
}

func PendingAnchor() RecencyAnchor {
	return RecencyAnchor{Kind: AnchorPending}
}

func ShortLivedAnchor(blockhash solana.Hash) RecencyAnchor {
	return RecencyAnchor{Kind: AnchorShortLived, Value: blockhash}
}

func DurableAnchor(
	nonceAccount, authority solana.PublicKey, value solana.Hash,
) RecencyAnchor {
	return RecencyAnchor{
		Kind:           AnchorDurable,
		Value:          value,
		NonceAccount:   nonceAccount,
		NonceAuthority: authority,
	}
}

func (a RecencyAnchor) IsPending() bool {
	return a.Kind == AnchorPending
}

func (a RecencyAnchor) IsDurable() bool {
	return a.Kind == AnchorDurable
}

func (a RecencyAnchor) String() string {
	switch a.Kind {
	case AnchorShortLived:
		return fmt.Sprintf("short-lived(%s)", a.Value)
	case AnchorDurable:
		return fmt.Sprintf(
			"durable(account %s, authority %s, value %s)",
			a.NonceAccount, a.NonceAuthority, a.Value,
		)
	default:
		return a.Kind.String()
	}
}

func (a RecencyAnchor) validate() error {
	switch a.Kind {
	case AnchorPending:
		if !a.Value.IsZero() {
			return fmt.Errorf("%w: pending anchor must not carry a value", ErrInvalidAnchor)
		}
	case AnchorShortLived:
		if a.Value.IsZero() {
			return fmt.Errorf("%w: missing blockhash", ErrInvalidAnchor)
		}
	case AnchorDurable:
		if a.Value.IsZero() {
			return fmt.Errorf("%w: missing nonce value", ErrInvalidAnchor)
		}
		if a.NonceAccount.IsZero() {
			return fmt.Errorf("%w: missing nonce account", ErrInvalidAnchor)
		}
		if a.NonceAuthority.IsZero() {
			return fmt.Errorf("%w: missing nonce authority", ErrInvalidAnchor)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAnchor, a.Kind)
	}
	return nil
}
