package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/config"
	"github.com/spec-kit/support-sla/internal/delivery"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/repository"
)

type memPending struct {
	mu       sync.Mutex
	rows     map[string]domain.PendingMemberNotification
	released []string
}

func (m *memPending) CreateIfNone(_ context.Context, n *domain.PendingMemberNotification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[n.ID] = *n
	return true, nil
}

func (m *memPending) ClaimDue(_ context.Context, now time.Time, _ int) ([]domain.PendingMemberNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var claimed []domain.PendingMemberNotification
	for id, row := range m.rows {
		if row.Due(now) {
			sent := now
			row.DateSentUTC = &sent
			m.rows[id] = row
			claimed = append(claimed, row)
		}
	}
	return claimed, nil
}

func (m *memPending) Release(_ context.Context, id string, retryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.rows[id]
	row.DateSentUTC = nil
	row.NotBeforeUTC = &retryAt
	m.rows[id] = row
	m.released = append(m.released, id)
	return nil
}

func (m *memPending) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memPending) DeleteOutstandingForConversation(context.Context, string) (int64, error) {
	return 0, nil
}

func (m *memPending) PurgeStaleClaims(_ context.Context, claimedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.DateSentUTC != nil && row.DateSentUTC.Before(claimedBefore) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type memConversations struct {
	repository.ConversationRepository
	byID map[string]domain.Conversation
}

func (m memConversations) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type memMembers map[string]domain.Member

func (m memMembers) GetByID(_ context.Context, id string) (*domain.Member, error) {
	member, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &member, nil
}

func (m memMembers) ListByIDs(context.Context, []string) ([]domain.Member, error) {
	return nil, nil
}

type recordingSink struct {
	mu   sync.Mutex
	sent []delivery.Reminder
	fail map[string]error
}

func (s *recordingSink) Send(_ context.Context, r delivery.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[r.Member.ID]; err != nil {
		return err
	}
	s.sent = append(s.sent, r)
	return nil
}

func pendingRow(id, memberID, conversationID string, notBefore time.Time) domain.PendingMemberNotification {
	return domain.PendingMemberNotification{
		ID:             id,
		MemberID:       memberID,
		ConversationID: conversationID,
		Kind:           domain.NotificationKindWarning,
		NotBeforeUTC:   &notBefore,
		CreatedOn:      notBefore,
	}
}

func newTestWorker(now time.Time, pending *memPending, sink delivery.Sink) (*NotificationWorker, *observability.Metrics) {
	metrics := observability.NewMetrics()
	w := NewNotificationWorker(NotificationWorkerDependencies{
		PendingRepo: pending,
		ConversationRepo: memConversations{byID: map[string]domain.Conversation{
			"open":   {ID: "open", RoomID: "r1", State: domain.ConversationStateNeedsResponse},
			"closed": {ID: "closed", RoomID: "r1", State: domain.ConversationStateClosed},
		}},
		MemberRepo: memMembers{
			"m1":   {ID: "m1", PlatformUserID: "U1", Active: true},
			"m2":   {ID: "m2", PlatformUserID: "U2", Active: true},
			"gone": {ID: "gone", Active: false},
		},
		Sink:    sink,
		Clock:   clock.NewFixed(now),
		Metrics: metrics,
		Config:  config.NotificationConfig{BatchSize: 10, StaleSendSeconds: 600, RetryDelaySeconds: 300},
	})
	return w, metrics
}

func TestRunOnceDeliversDueReminders(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	pending := &memPending{rows: map[string]domain.PendingMemberNotification{
		"due":    pendingRow("due", "m1", "open", now.Add(-time.Minute)),
		"future": pendingRow("future", "m2", "open", now.Add(time.Hour)),
	}}
	sink := &recordingSink{}
	w, metrics := newTestWorker(now, pending, sink)

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "U1", sink.sent[0].Member.PlatformUserID)
	assert.NotContains(t, pending.rows, "due")
	assert.Contains(t, pending.rows, "future")
	assert.Equal(t, int64(1), metrics.Snapshot()["notifications"]["sent"])
}

func TestRunOnceReleasesFailedSends(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	pending := &memPending{rows: map[string]domain.PendingMemberNotification{
		"n1": pendingRow("n1", "m1", "open", now),
	}}
	sink := &recordingSink{fail: map[string]error{"m1": errors.New("rate limited")}}
	w, _ := newTestWorker(now, pending, sink)

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"n1"}, pending.released)
	assert.True(t, pending.rows["n1"].Outstanding())
	require.NotNil(t, pending.rows["n1"].NotBeforeUTC)
	assert.Equal(t, now.Add(5*time.Minute), *pending.rows["n1"].NotBeforeUTC)

	// The released row waits out the retry delay instead of being claimed again.
	result, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DeliveryResult{}, result)
	assert.Equal(t, []string{"n1"}, pending.released)
}

func TestRunOnceDropsStaleReminders(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	pending := &memPending{rows: map[string]domain.PendingMemberNotification{
		"closed":    pendingRow("closed", "m1", "closed", now),
		"inactive":  pendingRow("inactive", "gone", "open", now),
		"no-member": pendingRow("no-member", "nobody", "open", now),
		"no-conv":   pendingRow("no-conv", "m2", "deleted", now),
	}}
	sink := &recordingSink{}
	w, _ := newTestWorker(now, pending, sink)

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Dropped)
	assert.Empty(t, sink.sent)
	assert.Empty(t, pending.rows)
}

func TestRunOnceDropsMembersWithoutRecipient(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	pending := &memPending{rows: map[string]domain.PendingMemberNotification{
		"n1": pendingRow("n1", "m1", "open", now),
	}}
	sink := &recordingSink{fail: map[string]error{"m1": delivery.ErrNoRecipient}}
	w, _ := newTestWorker(now, pending, sink)

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dropped)
	assert.Empty(t, pending.released)
	assert.Empty(t, pending.rows)
}

func TestRunOncePurgesStaleClaims(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	claimedAt := now.Add(-time.Hour)
	row := pendingRow("stuck", "m1", "open", claimedAt)
	row.DateSentUTC = &claimedAt
	pending := &memPending{rows: map[string]domain.PendingMemberNotification{"stuck": row}}
	sink := &recordingSink{}
	w, _ := newTestWorker(now, pending, sink)

	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Purged)
	assert.Empty(t, sink.sent)
	assert.Empty(t, pending.rows)
}
