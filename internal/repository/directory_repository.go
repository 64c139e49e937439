package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/workinghours"
)

// MemberRepository loads support agents with their schedules.
type MemberRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Member, error)
}

// RoomRepository loads rooms.
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Room, error)
}

// OrganizationRepository loads organizations.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository builds repository.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberColumns = `id, organization_id, display_name, platform_user_id, time_zone_id,
        working_hours_start, working_hours_end, work_days, active, created_at, updated_at`

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ANY($1) AND active ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		m          domain.Member
		hoursStart *string
		hoursEnd   *string
		workDays   []int32
	)
	if err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.DisplayName,
		&m.PlatformUserID,
		&m.TimeZoneID,
		&hoursStart,
		&hoursEnd,
		&workDays,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return domain.Member{}, err
	}
	if hoursStart != nil && hoursEnd != nil {
		// Malformed stored hours fall back to the organization default.
		if wh, err := workinghours.Parse(*hoursStart + "-" + *hoursEnd); err == nil {
			m.Hours = &wh
		}
	}
	for _, d := range workDays {
		if d >= 0 && d <= 6 {
			m.WorkDays = append(m.WorkDays, time.Weekday(d))
		}
	}
	return m, nil
}

type roomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository builds repository.
func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	const query = `
        SELECT id, organization_id, name, platform_room_id, warning_seconds, deadline_seconds,
               first_responder_ids, escalation_responder_ids, created_at, updated_at
        FROM rooms WHERE id=$1`
	var (
		room            domain.Room
		warningSeconds  *int32
		deadlineSeconds *int32
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.OrganizationID,
		&room.Name,
		&room.PlatformRoomID,
		&warningSeconds,
		&deadlineSeconds,
		&room.FirstResponderIDs,
		&room.EscalationResponderIDs,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	room.TimeToRespond = responseTarget(warningSeconds, deadlineSeconds)
	return &room, nil
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository builds repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `
        SELECT id, name, default_warning_seconds, default_deadline_seconds,
               default_first_responder_ids, default_escalation_responder_ids, created_at, updated_at
        FROM organizations WHERE id=$1`
	var (
		org             domain.Organization
		warningSeconds  *int32
		deadlineSeconds *int32
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&warningSeconds,
		&deadlineSeconds,
		&org.DefaultFirstResponderIDs,
		&org.DefaultEscalationResponderIDs,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	org.DefaultTimeToRespond = responseTarget(warningSeconds, deadlineSeconds)
	return &org, nil
}

func responseTarget(warningSeconds, deadlineSeconds *int32) *domain.ResponseTarget {
	if warningSeconds == nil && deadlineSeconds == nil {
		return nil
	}
	target := &domain.ResponseTarget{}
	if warningSeconds != nil {
		target.Warning = time.Duration(*warningSeconds) * time.Second
	}
	if deadlineSeconds != nil {
		target.Deadline = time.Duration(*deadlineSeconds) * time.Second
	}
	return target
}
