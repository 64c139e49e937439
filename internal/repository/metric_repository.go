package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sla/internal/domain"
)

// MetricObservationRepository reads recorded observations. Observations are
// written together with the conversation change that produced them.
type MetricObservationRepository interface {
	ListByConversation(ctx context.Context, conversationID string) ([]domain.MetricObservation, error)
}

type metricObservationRepository struct {
	pool *pgxpool.Pool
}

// NewMetricObservationRepository builds repository.
func NewMetricObservationRepository(pool *pgxpool.Pool) MetricObservationRepository {
	return &metricObservationRepository{pool: pool}
}

func (r *metricObservationRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.MetricObservation, error) {
	const query = `
        SELECT id, observed_at, metric, value, conversation_id, room_id, organization_id
        FROM metric_observations WHERE conversation_id=$1 ORDER BY observed_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MetricObservation
	for rows.Next() {
		var obs domain.MetricObservation
		if err := rows.Scan(
			&obs.ID,
			&obs.Timestamp,
			&obs.Metric,
			&obs.Value,
			&obs.ConversationID,
			&obs.RoomID,
			&obs.OrganizationID,
		); err != nil {
			return nil, err
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}

func insertObservation(ctx context.Context, tx pgx.Tx, obs *domain.MetricObservation) error {
	const query = `
        INSERT INTO metric_observations (id, observed_at, metric, value, conversation_id, room_id, organization_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := tx.Exec(ctx, query,
		obs.ID,
		obs.Timestamp,
		string(obs.Metric),
		obs.Value,
		obs.ConversationID,
		obs.RoomID,
		obs.OrganizationID,
	); err != nil {
		return fmt.Errorf("insert metric observation: %w", err)
	}
	return nil
}
