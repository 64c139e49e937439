package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sla/internal/domain"
)

// ErrVersionConflict is returned when a conversation changed since it was loaded.
var ErrVersionConflict = errors.New("conversation version conflict")

// ErrConversationExists is returned by Create when another writer created the
// conversation first.
var ErrConversationExists = errors.New("conversation already exists")

// ConversationFilter selects conversations for background checks.
type ConversationFilter struct {
	States        []domain.ConversationState
	SnoozedBefore *time.Time
	Limit         int
}

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	// Save writes the aggregate, its pending events and the given observations
	// atomically, guarded by the version token.
	Save(ctx context.Context, conversation *domain.Conversation, observations []domain.MetricObservation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)
	ListEvents(ctx context.Context, conversationID string) ([]domain.StateChangedEvent, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, room_id, organization_id, state, created_on, last_state_change_on,
        first_response_on, closed_on, archived_on, time_to_respond_warning_notification_sent,
        snoozed_until, version`

func (r *conversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO conversations (id, room_id, organization_id, state, created_on, last_state_change_on,
            first_response_on, closed_on, archived_on, time_to_respond_warning_notification_sent, snoozed_until, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)`
		if _, err := tx.Exec(ctx, query,
			c.ID,
			c.RoomID,
			c.OrganizationID,
			string(c.State),
			c.CreatedOn,
			c.LastStateChangeOn,
			c.FirstResponseOn,
			c.ClosedOn,
			c.ArchivedOn,
			c.TimeToRespondWarningNotificationSent,
			c.SnoozedUntil,
		); err != nil {
			if IsUniqueViolation(err) {
				return ErrConversationExists
			}
			return fmt.Errorf("insert conversation: %w", err)
		}
		if err := insertEvents(ctx, tx, c.PendingEvents); err != nil {
			return err
		}
		c.Version = 1
		c.PendingEvents = nil
		return nil
	})
}

func (r *conversationRepository) Save(ctx context.Context, c *domain.Conversation, observations []domain.MetricObservation) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        UPDATE conversations SET state=$1, last_state_change_on=$2, first_response_on=$3, closed_on=$4,
            archived_on=$5, time_to_respond_warning_notification_sent=$6, snoozed_until=$7, version=version+1
        WHERE id=$8 AND version=$9`
		cmd, err := tx.Exec(ctx, query,
			string(c.State),
			c.LastStateChangeOn,
			c.FirstResponseOn,
			c.ClosedOn,
			c.ArchivedOn,
			c.TimeToRespondWarningNotificationSent,
			c.SnoozedUntil,
			c.ID,
			c.Version,
		)
		if err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		if err := insertEvents(ctx, tx, c.PendingEvents); err != nil {
			return err
		}
		for i := range observations {
			if err := insertObservation(ctx, tx, &observations[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Version++
	c.PendingEvents = nil
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	c, err := scanConversation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepository) List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		args = append(args, states)
		clauses = append(clauses, fmt.Sprintf("state = ANY($%d)", len(args)))
	}
	if filter.SnoozedBefore != nil {
		args = append(args, *filter.SnoozedBefore)
		clauses = append(clauses, fmt.Sprintf("snoozed_until <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE %s ORDER BY last_state_change_on ASC LIMIT %d`,
		conversationColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *conversationRepository) ListEvents(ctx context.Context, conversationID string) ([]domain.StateChangedEvent, error) {
	const query = `
        SELECT id, conversation_id, old_state, new_state, implicit, actor_id, created_at
        FROM conversation_state_events WHERE conversation_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StateChangedEvent
	for rows.Next() {
		var (
			ev       domain.StateChangedEvent
			oldState string
			newState string
		)
		if err := rows.Scan(&ev.ID, &ev.ConversationID, &oldState, &newState, &ev.Implicit, &ev.ActorID, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.OldState = domain.ParseConversationState(oldState)
		ev.NewState = domain.ParseConversationState(newState)
		result = append(result, ev)
	}
	return result, rows.Err()
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []domain.StateChangedEvent) error {
	const query = `
        INSERT INTO conversation_state_events (conversation_id, old_state, new_state, implicit, actor_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	for i := range events {
		ev := &events[i]
		if err := tx.QueryRow(ctx, query,
			ev.ConversationID,
			string(ev.OldState),
			string(ev.NewState),
			ev.Implicit,
			ev.ActorID,
			ev.Timestamp,
		).Scan(&ev.ID); err != nil {
			return fmt.Errorf("insert state event: %w", err)
		}
	}
	return nil
}

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var (
		c     domain.Conversation
		state string
	)
	if err := row.Scan(
		&c.ID,
		&c.RoomID,
		&c.OrganizationID,
		&state,
		&c.CreatedOn,
		&c.LastStateChangeOn,
		&c.FirstResponseOn,
		&c.ClosedOn,
		&c.ArchivedOn,
		&c.TimeToRespondWarningNotificationSent,
		&c.SnoozedUntil,
		&c.Version,
	); err != nil {
		return domain.Conversation{}, err
	}
	c.State = domain.ParseConversationState(state)
	return c, nil
}
