package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// AssemblerService is responsible for the lifecycle of a two-party intent:
//   - Build an intent from a list of instructions, a fee payer and a recency anchor, either given or fetched from the network (latest blockhash or durable nonce).
//   - Build a draft intent whose anchor is left pending, for the counterparty to attach its own durable nonce before anyone signs.
//   - Partially sign an intent, any number of times and in any order.
//   - Serialize/deserialize an intent to/from the base64 payload handed off between the parties.
//   - Finalize and submit a fully signed intent, classifying network rejections.
//
// Intents are immutable values, every step returns a new one. The service
// never holds private keys and never retries a rejected submission.
type AssemblerService struct {
	network ports.Network

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewAssemblerService(network ports.Network) *AssemblerService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("assembler service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("assembler service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &AssemblerService{network, logFn, warnFn}
}

func (as *AssemblerService) BuildIntent(
	instructions []solana.Instruction, feePayer solana.PublicKey,
	anchor domain.RecencyAnchor,
) (*domain.Intent, error) {
	ixs, err := domain.NewInstructions(instructions)
	if err != nil {
		return nil, err
	}
	intent, err := domain.NewIntent(ixs, feePayer, anchor)
	if err != nil {
		return nil, err
	}

	intentsBuilt.WithLabelValues(anchor.Kind.String()).Inc()
	as.log(
		"built intent %s with %d instruction(s), anchor %s, signers %s",
		intent.ID(), len(intent.Instructions()), anchor,
		keys(intent.RequiredSigners()),
	)
	return intent, nil
}

// BuildDraft builds an intent with a pending anchor. It can't be signed
// until the counterparty seals it with AttachNonce or SealAnchor.
func (as *AssemblerService) BuildDraft(
	instructions []solana.Instruction, feePayer solana.PublicKey,
) (*domain.Intent, error) {
	return as.BuildIntent(instructions, feePayer, domain.PendingAnchor())
}

func (as *AssemblerService) BuildWithLatestBlockhash(
	ctx context.Context, instructions []solana.Instruction,
	feePayer solana.PublicKey,
) (*domain.Intent, error) {
	blockhash, err := as.network.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return as.BuildIntent(
		instructions, feePayer, domain.ShortLivedAnchor(blockhash),
	)
}

func (as *AssemblerService) BuildWithNonce(
	ctx context.Context, instructions []solana.Instruction,
	feePayer, nonceAccount solana.PublicKey,
) (*domain.Intent, error) {
	anchor, err := as.nonceAnchor(ctx, nonceAccount)
	if err != nil {
		return nil, err
	}
	return as.BuildIntent(instructions, feePayer, anchor)
}

// AttachNonce prepends the advance of the given nonce account to an unsigned
// intent and seals its anchor to the current nonce value.
func (as *AssemblerService) AttachNonce(
	ctx context.Context, intent *domain.Intent, nonceAccount solana.PublicKey,
) (*domain.Intent, error) {
	if intent.IsSigned() {
		return nil, domain.ErrAnchorSealed
	}
	anchor, err := as.nonceAnchor(ctx, nonceAccount)
	if err != nil {
		return nil, err
	}
	return as.SealAnchor(intent, anchor)
}

func (as *AssemblerService) SealAnchor(
	intent *domain.Intent, anchor domain.RecencyAnchor,
) (*domain.Intent, error) {
	sealed, err := intent.WithAnchor(anchor)
	if err != nil {
		return nil, err
	}
	intentsBuilt.WithLabelValues(anchor.Kind.String()).Inc()
	as.log("sealed intent %s into %s with anchor %s", intent.ID(), sealed.ID(), anchor)
	return sealed, nil
}

func (as *AssemblerService) PartialSign(
	intent *domain.Intent, signer domain.Signer,
) (*domain.Intent, error) {
	signed, err := intent.Sign(signer)
	if err != nil {
		return nil, err
	}

	signaturesAdded.Inc()
	as.log(
		"intent %s signed by %s, missing signers: %s",
		signed.ID(), signer.PublicKey(), keys(signed.MissingSigners()),
	)
	return signed, nil
}

// Combine merges the signatures of two copies of the same intent.
func (as *AssemblerService) Combine(a, b *domain.Intent) (*domain.Intent, error) {
	return a.Combine(b)
}

func (as *AssemblerService) SerializeForHandoff(
	intent *domain.Intent,
) ([]byte, error) {
	return intent.Serialize()
}

func (as *AssemblerService) DeserializeFromHandoff(
	payload []byte,
) (*domain.Intent, error) {
	return domain.DeserializeIntent(payload)
}

// FinalizeAndSubmit sends a fully signed intent to the network. No network
// call happens if any required signature is missing.
func (as *AssemblerService) FinalizeAndSubmit(
	ctx context.Context, intent *domain.Intent,
) (*domain.Receipt, error) {
	if intent.Anchor().IsPending() {
		return nil, domain.ErrAnchorPending
	}
	if missing := intent.MissingSigners(); len(missing) > 0 {
		submissions.WithLabelValues("incomplete").Inc()
		return nil, fmt.Errorf(
			"%w: %s", domain.ErrIncompleteSignatures, keys(missing),
		)
	}

	rawTx, err := intent.WireBytes()
	if err != nil {
		return nil, err
	}

	sig, err := as.network.SendTransaction(ctx, rawTx)
	if err != nil {
		var rejection *domain.RejectionError
		if errors.As(err, &rejection) {
			rejection = rejection.Bind(intent.Anchor(), intent.Signature())
			submissions.WithLabelValues(resultLabel(rejection.Kind)).Inc()
			as.warn(rejection, "intent %s rejected", intent.ID())
			return nil, rejection
		}
		submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to submit intent %s: %w", intent.ID(), err)
	}

	submissions.WithLabelValues("submitted").Inc()
	as.log("intent %s submitted as tx %s", intent.ID(), sig)

	return &domain.Receipt{
		IntentID:    intent.ID(),
		Signature:   sig,
		Anchor:      intent.Anchor(),
		SubmittedAt: time.Now(),
	}, nil
}

// RefreshAnchor returns an unsigned copy of the intent anchored to a fresh
// value of the same kind. Existing signatures are dropped since they cover
// the previous anchor.
func (as *AssemblerService) RefreshAnchor(
	ctx context.Context, intent *domain.Intent,
) (*domain.Intent, error) {
	current := intent.Anchor()

	var anchor domain.RecencyAnchor
	switch current.Kind {
	case domain.AnchorShortLived:
		blockhash, err := as.network.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
		}
		anchor = domain.ShortLivedAnchor(blockhash)
	case domain.AnchorDurable:
		var err error
		anchor, err = as.nonceAnchor(ctx, current.NonceAccount)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrAnchorPending
	}

	ixs := make([]solana.Instruction, 0)
	for _, ix := range intent.Body() {
		ixs = append(ixs, ix)
	}
	return as.BuildIntent(ixs, intent.FeePayer(), anchor)
}

func (as *AssemblerService) GetConfirmation(
	ctx context.Context, sig solana.Signature,
) (domain.ConfirmationStatus, error) {
	return as.network.GetSignatureStatus(ctx, sig)
}

func (as *AssemblerService) AwaitConfirmation(
	ctx context.Context, receipt *domain.Receipt,
	status domain.ConfirmationStatus,
) error {
	if err := as.network.AwaitConfirmation(
		ctx, receipt.Signature, status,
	); err != nil {
		return err
	}
	as.log("tx %s reached status %s", receipt.Signature, status)
	return nil
}

// submitAndConfirm is the single-party shortcut used by the helper services.
func (as *AssemblerService) submitAndConfirm(
	ctx context.Context, intent *domain.Intent,
) (*domain.Receipt, error) {
	receipt, err := as.FinalizeAndSubmit(ctx, intent)
	if err != nil {
		return nil, err
	}
	if err := as.AwaitConfirmation(ctx, receipt, domain.StatusConfirmed); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (as *AssemblerService) nonceAnchor(
	ctx context.Context, nonceAccount solana.PublicKey,
) (domain.RecencyAnchor, error) {
	nonce, err := as.network.GetNonce(ctx, nonceAccount)
	if err != nil {
		return domain.RecencyAnchor{}, fmt.Errorf(
			"failed to get nonce %s: %w", nonceAccount, err,
		)
	}
	return domain.DurableAnchor(nonceAccount, nonce.Authority, nonce.Value), nil
}

func resultLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrStaleAnchor):
		return "stale_anchor"
	case errors.Is(kind, domain.ErrNonceMismatch):
		return "nonce_mismatch"
	default:
		return "rejected"
	}
}

func keys(list []solana.PublicKey) string {
	str := make([]string, 0, len(list))
	for _, k := range list {
		str = append(str, k.String())
	}
	return strings.Join(str, ", ")
}
