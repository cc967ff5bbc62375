package postgresdb

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	handoffColumns = `id, payload, fee_payer, required_signers, missing_signers,
		anchor_kind, status, tx_signature, reason, created_at, updated_at`

	insertHandoffQuery = `INSERT INTO handoff (` + handoffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	selectHandoffQuery = `SELECT ` + handoffColumns + ` FROM handoff
		WHERE id = $1`
	selectHandoffForUpdateQuery = selectHandoffQuery + ` FOR UPDATE`
	selectAllHandoffsQuery      = `SELECT ` + handoffColumns + ` FROM handoff
		ORDER BY created_at`
	selectHandoffsByStatusQuery = `SELECT ` + handoffColumns + ` FROM handoff
		WHERE status = ANY($1) ORDER BY created_at`
	updateHandoffQuery = `UPDATE handoff SET payload = $2,
		missing_signers = $3, status = $4, tx_signature = $5, reason = $6,
		updated_at = $7 WHERE id = $1`
	deleteHandoffQuery = `DELETE FROM handoff WHERE id = $1 RETURNING ` +
		handoffColumns
)

type handoffRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.HandoffEvent
	externalChEvents chan domain.HandoffEvent
}

func NewHandoffRepositoryPgImpl(
	pgxPool *pgxpool.Pool,
) domain.HandoffRepository {
	return newHandoffRepositoryPg(pgxPool)
}

func newHandoffRepositoryPg(pgxPool *pgxpool.Pool) *handoffRepositoryPg {
	return &handoffRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.HandoffEvent),
		externalChEvents: make(chan domain.HandoffEvent),
	}
}

func (h *handoffRepositoryPg) AddHandoff(
	ctx context.Context, handoff *domain.Handoff,
) (bool, error) {
	if _, err := h.pgxPool.Exec(
		ctx, insertHandoffQuery,
		handoff.ID, handoff.Payload, handoff.FeePayer,
		handoff.RequiredSigners, handoff.MissingSigners,
		int32(handoff.AnchorKind), int32(handoff.Status),
		handoff.TxSignature, handoff.Reason,
		handoff.CreatedAt, handoff.UpdatedAt,
	); err != nil {
		if pqErr, ok := err.(*pgconn.PgError); pqErr != nil && ok && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}

	go h.publishEvent(domain.HandoffEvent{
		EventType: domain.HandoffAdded,
		Handoff:   handoff,
	})

	return true, nil
}

func (h *handoffRepositoryPg) GetHandoff(
	ctx context.Context, id string,
) (*domain.Handoff, error) {
	return scanHandoff(h.pgxPool.QueryRow(ctx, selectHandoffQuery, id))
}

func (h *handoffRepositoryPg) ListHandoffs(
	ctx context.Context, statuses ...domain.HandoffStatus,
) ([]*domain.Handoff, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) > 0 {
		values := make([]int32, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, int32(s))
		}
		rows, err = h.pgxPool.Query(ctx, selectHandoffsByStatusQuery, values)
	} else {
		rows, err = h.pgxPool.Query(ctx, selectAllHandoffsQuery)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Handoff, 0)
	for rows.Next() {
		handoff, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, handoff)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (h *handoffRepositoryPg) UpdateHandoff(
	ctx context.Context, id string,
	updateFn func(h *domain.Handoff) (*domain.Handoff, error),
) error {
	conn, err := h.pgxPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	handoff, err := scanHandoff(tx.QueryRow(ctx, selectHandoffForUpdateQuery, id))
	if err != nil {
		return err
	}

	updatedHandoff, err := updateFn(handoff)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx, updateHandoffQuery,
		id, updatedHandoff.Payload, updatedHandoff.MissingSigners,
		int32(updatedHandoff.Status), updatedHandoff.TxSignature,
		updatedHandoff.Reason, updatedHandoff.UpdatedAt,
	); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	go h.publishEvent(domain.HandoffEvent{
		EventType: domain.EventTypeForStatus(updatedHandoff.Status),
		Handoff:   updatedHandoff,
	})

	return nil
}

func (h *handoffRepositoryPg) DeleteHandoffs(
	ctx context.Context, ids []string,
) (int, error) {
	count := 0
	for _, id := range ids {
		handoff, err := scanHandoff(h.pgxPool.QueryRow(ctx, deleteHandoffQuery, id))
		if err != nil {
			if errors.Is(err, domain.ErrHandoffNotFound) {
				continue
			}
			return count, err
		}
		count++

		go h.publishEvent(domain.HandoffEvent{
			EventType: domain.HandoffDeleted,
			Handoff:   handoff,
		})
	}
	return count, nil
}

func (h *handoffRepositoryPg) GetEventChannel() chan domain.HandoffEvent {
	return h.externalChEvents
}

func (h *handoffRepositoryPg) publishEvent(event domain.HandoffEvent) {
	h.chLock.Lock()
	defer h.chLock.Unlock()

	h.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case h.externalChEvents <- event:
	default:
	}
}

func (h *handoffRepositoryPg) reset() {
	if _, err := h.pgxPool.Exec(context.Background(), "TRUNCATE handoff"); err != nil {
		return
	}
}

func (h *handoffRepositoryPg) close() {
	close(h.chEvents)
	close(h.externalChEvents)
}

func scanHandoff(row pgx.Row) (*domain.Handoff, error) {
	var (
		handoff            domain.Handoff
		anchorKind, status int32
	)
	if err := row.Scan(
		&handoff.ID, &handoff.Payload, &handoff.FeePayer,
		&handoff.RequiredSigners, &handoff.MissingSigners,
		&anchorKind, &status, &handoff.TxSignature, &handoff.Reason,
		&handoff.CreatedAt, &handoff.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHandoffNotFound
		}
		return nil, err
	}
	handoff.AnchorKind = domain.AnchorKind(anchorKind)
	handoff.Status = domain.HandoffStatus(status)
	return &handoff, nil
}
