package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

const defaultPruneInterval = time.Minute

// RelayService is the mailbox where partially signed intents are parked
// between the phases of the two-party flow:
//   - Publish a handoff payload. New intents are stored, copies of known ones have their signatures merged into the stored one.
//   - Fetch or list the stored entries.
//   - Submit a complete entry, recording the outcome.
//
// The service registers 1 handler for every handoff event type to keep
// track of them in logs and metrics, and runs a pruner that deletes the
// entries not updated for longer than the retention.
type RelayService struct {
	repoManager   ports.RepoManager
	assembler     *AssemblerService
	retention     time.Duration
	pruneInterval time.Duration
	quitChan      chan struct{}

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewRelayService(
	repoManager ports.RepoManager, assembler *AssemblerService,
	retention time.Duration,
) *RelayService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("relay service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("relay service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	pruneInterval := defaultPruneInterval
	if retention > 0 && retention < pruneInterval {
		pruneInterval = retention
	}
	svc := &RelayService{
		repoManager, assembler, retention, pruneInterval, nil, logFn, warnFn,
	}
	svc.registerHandlerForHandoffEvents()
	return svc
}

// Start spawns the pruner, if a retention is set.
func (rs *RelayService) Start() {
	if rs.retention <= 0 || rs.quitChan != nil {
		return
	}
	rs.quitChan = make(chan struct{})
	go rs.runPruner(rs.quitChan)
}

func (rs *RelayService) Stop() {
	if rs.quitChan == nil {
		return
	}
	close(rs.quitChan)
	rs.quitChan = nil
}

// Publish stores the intent of the given payload or merges its signatures
// into the stored copy.
func (rs *RelayService) Publish(
	ctx context.Context, payload []byte,
) (*HandoffInfo, error) {
	intent, err := rs.assembler.DeserializeFromHandoff(payload)
	if err != nil {
		return nil, err
	}

	repo := rs.repoManager.HandoffRepository()
	now := time.Now()
	handoff, err := domain.NewHandoff(intent, now)
	if err != nil {
		return nil, err
	}
	added, err := repo.AddHandoff(ctx, handoff)
	if err != nil {
		return nil, err
	}
	if added {
		rs.log("published new intent %s", handoff.ID)
		return (*HandoffInfo)(handoff), nil
	}

	if err := repo.UpdateHandoff(
		ctx, handoff.ID, func(h *domain.Handoff) (*domain.Handoff, error) {
			stored, err := h.Intent()
			if err != nil {
				return nil, err
			}
			merged, err := stored.Combine(intent)
			if err != nil {
				return nil, err
			}
			if err := h.Update(merged, now); err != nil {
				return nil, err
			}
			return h, nil
		},
	); err != nil {
		return nil, err
	}

	updated, err := repo.GetHandoff(ctx, handoff.ID)
	if err != nil {
		return nil, err
	}
	rs.log(
		"merged signatures into intent %s, missing %d signer(s)",
		updated.ID, len(updated.MissingSigners),
	)
	return (*HandoffInfo)(updated), nil
}

func (rs *RelayService) Fetch(
	ctx context.Context, id string,
) (*HandoffInfo, error) {
	handoff, err := rs.repoManager.HandoffRepository().GetHandoff(ctx, id)
	if err != nil {
		return nil, err
	}
	return (*HandoffInfo)(handoff), nil
}

func (rs *RelayService) List(
	ctx context.Context, statuses ...domain.HandoffStatus,
) ([]*HandoffInfo, error) {
	handoffs, err := rs.repoManager.HandoffRepository().ListHandoffs(
		ctx, statuses...,
	)
	if err != nil {
		return nil, err
	}
	list := make([]*HandoffInfo, 0, len(handoffs))
	for _, h := range handoffs {
		list = append(list, (*HandoffInfo)(h))
	}
	return list, nil
}

// Submit finalizes and submits the stored intent. A network rejection is
// recorded in the entry, which stays available for a later retry with a
// refreshed intent.
func (rs *RelayService) Submit(
	ctx context.Context, id string,
) (*HandoffInfo, *domain.Receipt, error) {
	repo := rs.repoManager.HandoffRepository()
	handoff, err := repo.GetHandoff(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if handoff.IsFinal() {
		return nil, nil, fmt.Errorf(
			"%w: intent %s as tx %s",
			domain.ErrHandoffSubmitted, id, handoff.TxSignature,
		)
	}
	intent, err := handoff.Intent()
	if err != nil {
		return nil, nil, err
	}

	receipt, submitErr := rs.assembler.FinalizeAndSubmit(ctx, intent)
	if submitErr != nil {
		var rejection *domain.RejectionError
		if !errors.As(submitErr, &rejection) {
			return nil, nil, submitErr
		}
		if err := repo.UpdateHandoff(
			ctx, id, func(h *domain.Handoff) (*domain.Handoff, error) {
				h.MarkRejected(rejection.Error(), time.Now())
				return h, nil
			},
		); err != nil {
			rs.warn(err, "failed to record rejection of intent %s", id)
		}
		return nil, nil, submitErr
	}

	if err := repo.UpdateHandoff(
		ctx, id, func(h *domain.Handoff) (*domain.Handoff, error) {
			h.MarkSubmitted(receipt.Signature.String(), time.Now())
			return h, nil
		},
	); err != nil {
		return nil, nil, err
	}

	updated, err := repo.GetHandoff(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return (*HandoffInfo)(updated), receipt, nil
}

// Prune deletes the entries not updated for longer than the retention.
func (rs *RelayService) Prune(ctx context.Context) (int, error) {
	repo := rs.repoManager.HandoffRepository()
	handoffs, err := repo.ListHandoffs(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	ids := make([]string, 0)
	for _, h := range handoffs {
		if h.IsExpired(now, rs.retention) {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return repo.DeleteHandoffs(ctx, ids)
}

func (rs *RelayService) runPruner(quitChan chan struct{}) {
	ticker := time.NewTicker(rs.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quitChan:
			return
		case <-ticker.C:
			count, err := rs.Prune(context.Background())
			if err != nil {
				rs.warn(err, "error while pruning expired intents")
				continue
			}
			if count > 0 {
				rs.log("pruned %d expired intent(s)", count)
			}
		}
	}
}

func (rs *RelayService) registerHandlerForHandoffEvents() {
	for _, eventType := range []domain.HandoffEventType{
		domain.HandoffAdded, domain.HandoffSigned, domain.HandoffSent,
		domain.HandoffFailed, domain.HandoffDeleted,
	} {
		rs.repoManager.RegisterHandlerForHandoffEvent(
			eventType, func(event domain.HandoffEvent) {
				handoffEvents.WithLabelValues(event.EventType.String()).Inc()
				rs.log(
					"%s: intent %s (%s)",
					event.EventType, event.Handoff.ID, event.Handoff.Status,
				)
			},
		)
	}
}
