package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	// Intent lifecycle errors.
	ErrUnauthorizedSigner   = errors.New("signer is not a required signer of the intent")
	ErrIncompleteSignatures = errors.New("intent is missing required signatures")
	ErrMalformedIntent      = errors.New("malformed intent payload")
	ErrAnchorPending        = errors.New("intent recency anchor is not sealed yet")
	ErrAnchorSealed         = errors.New("intent recency anchor can't change once signed")
	ErrIntentMismatch       = errors.New("intents do not share the same message")

	// Construction errors.
	ErrEmptyInstructions     = errors.New("missing instructions")
	ErrMissingFeePayer       = errors.New("missing fee payer")
	ErrInvalidAnchor         = errors.New("invalid recency anchor")
	ErrInvalidNonceAuthority = errors.New(
		"nonce authority must be the fee payer or a signer of the intent",
	)
	ErrDuplicateNonceAdvance = errors.New(
		"nonce advance is allowed only once as first instruction of a durable intent",
	)
	ErrInvalidSigner = errors.New("invalid signer private key")

	// Submission errors, see RejectionError.
	ErrStaleAnchor      = errors.New("recency anchor expired")
	ErrNonceMismatch    = errors.New("durable nonce value is no longer current")
	ErrNetworkRejection = errors.New("transaction rejected by the network")
)

var stalePatterns = []string{
	"Blockhash not found",
	"BlockhashNotFound",
	"blockhash not found",
}

var noncePatterns = []string{
	"NonceNoRecentBlockhashes",
	"nonce account has not been advanced",
	"invalid nonce",
}

// RejectionError is returned when the network refuses a fully signed
// transaction. Reason holds the network message verbatim.
type RejectionError struct {
	Kind      error
	Reason    string
	Anchor    RecencyAnchor
	Signature solana.Signature
}

// NewRejection classifies the given network message.
func NewRejection(reason string) *RejectionError {
	kind := ErrNetworkRejection
	switch {
	case containsAny(reason, noncePatterns):
		kind = ErrNonceMismatch
	case containsAny(reason, stalePatterns):
		kind = ErrStaleAnchor
	}
	return &RejectionError{Kind: kind, Reason: reason}
}

func (e *RejectionError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s (tx %s)", e.Kind, e.Reason, e.Signature)
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// Bind returns a copy of the rejection attached to the intent anchor and
// transaction signature. A durable intent is never stale in the short-lived
// sense, hence a missing blockhash means the nonce moved on.
func (e *RejectionError) Bind(
	anchor RecencyAnchor, signature solana.Signature,
) *RejectionError {
	kind := e.Kind
	if anchor.IsDurable() && errors.Is(kind, ErrStaleAnchor) {
		kind = ErrNonceMismatch
	}
	if !anchor.IsDurable() && errors.Is(kind, ErrNonceMismatch) {
		kind = ErrNetworkRejection
	}
	return &RejectionError{
		Kind:      kind,
		Reason:    e.Reason,
		Anchor:    anchor,
		Signature: signature,
	}
}

func containsAny(str string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(str, p) {
			return true
		}
	}
	return false
}
