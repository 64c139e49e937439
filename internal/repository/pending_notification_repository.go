package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sla/internal/domain"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PendingNotificationRepository stores queued member reminders.
type PendingNotificationRepository interface {
	// CreateIfNone inserts n unless the member already has an outstanding
	// reminder for the conversation. Reports whether a row was created.
	CreateIfNone(ctx context.Context, n *domain.PendingMemberNotification) (bool, error)
	// ClaimDue marks up to limit due rows as sent and returns them. Concurrent
	// callers never receive the same row.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.PendingMemberNotification, error)
	// Release returns a claimed row to the queue after a failed send. The row
	// becomes due again at retryAt.
	Release(ctx context.Context, id string, retryAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteOutstandingForConversation(ctx context.Context, conversationID string) (int64, error)
	// PurgeStaleClaims deletes rows claimed before the cutoff whose worker
	// never confirmed the send.
	PurgeStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
}

type pendingNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPendingNotificationRepository builds repository.
func NewPendingNotificationRepository(pool *pgxpool.Pool) PendingNotificationRepository {
	return &pendingNotificationRepository{pool: pool}
}

func (r *pendingNotificationRepository) CreateIfNone(ctx context.Context, n *domain.PendingMemberNotification) (bool, error) {
	const query = `
        INSERT INTO pending_member_notifications (id, member_id, conversation_id, kind, not_before_utc, date_sent_utc, created_on)
        VALUES ($1,$2,$3,$4,$5,NULL,$6)
        ON CONFLICT (member_id, conversation_id) WHERE date_sent_utc IS NULL DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query,
		n.ID,
		n.MemberID,
		n.ConversationID,
		string(n.Kind),
		n.NotBeforeUTC,
		n.CreatedOn,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *pendingNotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.PendingMemberNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        UPDATE pending_member_notifications SET date_sent_utc=$1
        WHERE id IN (
            SELECT id FROM pending_member_notifications
            WHERE date_sent_utc IS NULL AND (not_before_utc IS NULL OR not_before_utc <= $1)
            ORDER BY not_before_utc NULLS FIRST
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, member_id, conversation_id, kind, not_before_utc, date_sent_utc, created_on`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PendingMemberNotification
	for rows.Next() {
		var n domain.PendingMemberNotification
		if err := rows.Scan(
			&n.ID,
			&n.MemberID,
			&n.ConversationID,
			&n.Kind,
			&n.NotBeforeUTC,
			&n.DateSentUTC,
			&n.CreatedOn,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *pendingNotificationRepository) Release(ctx context.Context, id string, retryAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE pending_member_notifications SET date_sent_utc=NULL, not_before_utc=$2 WHERE id=$1`, id, retryAt)
	if IsUniqueViolation(err) {
		// A newer reminder is already outstanding for this member; it supersedes this one.
		return r.Delete(ctx, id)
	}
	return err
}

func (r *pendingNotificationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM pending_member_notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pendingNotificationRepository) DeleteOutstandingForConversation(ctx context.Context, conversationID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM pending_member_notifications WHERE conversation_id=$1 AND date_sent_utc IS NULL`, conversationID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *pendingNotificationRepository) PurgeStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM pending_member_notifications WHERE date_sent_utc IS NOT NULL AND date_sent_utc < $1`, claimedBefore)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
