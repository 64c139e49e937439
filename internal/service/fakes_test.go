package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/repository"
)

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]domain.Conversation
	events        map[string][]domain.StateChangedEvent
	observations  []domain.MetricObservation
	conflict      bool
	createErr     error
	nextEventID   int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: map[string]domain.Conversation{},
		events:        map[string][]domain.StateChangedEvent{},
	}
}

func (r *fakeConversationRepo) Create(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.conversations[c.ID]; ok {
		return repository.ErrConversationExists
	}
	r.appendEvents(c.PendingEvents)
	c.Version = 1
	c.PendingEvents = nil
	r.conversations[c.ID] = *c
	return nil
}

func (r *fakeConversationRepo) Save(_ context.Context, c *domain.Conversation, observations []domain.MetricObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[c.ID]
	if !ok || stored.Version != c.Version || r.conflict {
		return repository.ErrVersionConflict
	}
	r.appendEvents(c.PendingEvents)
	r.observations = append(r.observations, observations...)
	c.Version++
	c.PendingEvents = nil
	r.conversations[c.ID] = *c
	return nil
}

func (r *fakeConversationRepo) appendEvents(evs []domain.StateChangedEvent) {
	for i := range evs {
		r.nextEventID++
		evs[i].ID = fmt.Sprintf("ev-%d", r.nextEventID)
		r.events[evs[i].ConversationID] = append(r.events[evs[i].ConversationID], evs[i])
	}
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *fakeConversationRepo) List(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Conversation
	for _, c := range r.conversations {
		if len(filter.States) > 0 && !containsState(filter.States, c.State) {
			continue
		}
		if filter.SnoozedBefore != nil && (c.SnoozedUntil == nil || c.SnoozedUntil.After(*filter.SnoozedBefore)) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeConversationRepo) ListEvents(_ context.Context, conversationID string) ([]domain.StateChangedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StateChangedEvent(nil), r.events[conversationID]...), nil
}

func (r *fakeConversationRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.MetricObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.MetricObservation
	for _, o := range r.observations {
		if o.ConversationID == conversationID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (r *fakeConversationRepo) put(c domain.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Version == 0 {
		c.Version = 1
	}
	r.conversations[c.ID] = c
}

func (r *fakeConversationRepo) get(id string) domain.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversations[id]
}

func containsState(states []domain.ConversationState, s domain.ConversationState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

type fakeDirectory struct {
	members map[string]domain.Member
	rooms   map[string]domain.Room
	orgs    map[string]domain.Organization
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members: map[string]domain.Member{},
		rooms:   map[string]domain.Room{},
		orgs:    map[string]domain.Organization{},
	}
}

type fakeMemberRepo struct{ d *fakeDirectory }

func (r fakeMemberRepo) GetByID(_ context.Context, id string) (*domain.Member, error) {
	m, ok := r.d.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r fakeMemberRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Member, error) {
	var result []domain.Member
	for _, id := range ids {
		if m, ok := r.d.members[id]; ok && m.Active {
			result = append(result, m)
		}
	}
	return result, nil
}

type fakeRoomRepo struct{ d *fakeDirectory }

func (r fakeRoomRepo) GetByID(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.d.rooms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &room, nil
}

type fakeOrganizationRepo struct{ d *fakeDirectory }

func (r fakeOrganizationRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	org, ok := r.d.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &org, nil
}

type fakePendingRepo struct {
	mu   sync.Mutex
	rows map[string]domain.PendingMemberNotification
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{rows: map[string]domain.PendingMemberNotification{}}
}

func (r *fakePendingRepo) CreateIfNone(_ context.Context, n *domain.PendingMemberNotification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Outstanding() && row.MemberID == n.MemberID && row.ConversationID == n.ConversationID {
			return false, nil
		}
	}
	r.rows[n.ID] = *n
	return true, nil
}

func (r *fakePendingRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.PendingMemberNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []domain.PendingMemberNotification
	for id, row := range r.rows {
		if len(claimed) == limit {
			break
		}
		if !row.Due(now) {
			continue
		}
		sent := now
		row.DateSentUTC = &sent
		r.rows[id] = row
		claimed = append(claimed, row)
	}
	return claimed, nil
}

func (r *fakePendingRepo) Release(_ context.Context, id string, retryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	row.DateSentUTC = nil
	row.NotBeforeUTC = &retryAt
	r.rows[id] = row
	return nil
}

func (r *fakePendingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *fakePendingRepo) DeleteOutstandingForConversation(_ context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.ConversationID == conversationID && row.Outstanding() {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *fakePendingRepo) PurgeStaleClaims(_ context.Context, claimedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.DateSentUTC != nil && row.DateSentUTC.Before(claimedBefore) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *fakePendingRepo) forConversation(conversationID string) []domain.PendingMemberNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.PendingMemberNotification
	for _, row := range r.rows {
		if row.ConversationID == conversationID {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberID < result[j].MemberID })
	return result
}
